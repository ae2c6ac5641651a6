package logx

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"

	"reelrun/internal/frame"
)

const colWidth = 58

// ReportMismatch prints a take's expected-vs-actual response in the same
// boxed two-column layout the teacher's request-mismatch log uses, followed
// by the underlying cause and a go-cmp structural diff.
func ReportMismatch(framePath string, expected, actual frame.Response, cause error) {
	separator := strings.Repeat("-", 119)
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05.000")

	fmt.Printf("%s\n", timestamp)
	fmt.Println("                                               Take did not match")
	fmt.Println("                                               ==================")
	fmt.Println()
	fmt.Println(separator)
	fmt.Printf("| %-*s | %-*s |\n", colWidth, "Frame", colWidth, truncate(framePath, colWidth))
	fmt.Println(separator)
	fmt.Printf("| %-*s | %-*s |\n",
		colWidth, fmt.Sprintf("expected status %d", expected.Status),
		colWidth, fmt.Sprintf("actual status %d", actual.Status))
	fmt.Println(separator)
	if cause != nil {
		fmt.Printf(" %s\n", cause)
	}
	fmt.Println(cmp.Diff(expected, actual))
	fmt.Println(separator)
	fmt.Println()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
