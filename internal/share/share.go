// Package share builds the text players post after finishing a quiz.
package share

import "fmt"

// Title is the name used in shared results.
const Title = "Knowledge Challenge"

// Text returns the shareable result line with a link back to pageURL.
func Text(score int, pageURL string) string {
	if pageURL == "" {
		return fmt.Sprintf("I scored %d points on the %s! Can you beat it?", score, Title)
	}
	return fmt.Sprintf("I scored %d points on the %s! Can you beat it?\nPlay here: %s", score, Title, pageURL)
}
