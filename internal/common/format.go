package common

import (
	"errors"
	"fmt"
	"strings"

	"wallet-ledger-go/internal/engine"
	"wallet-ledger-go/internal/models"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintSeparatorNewline prints a separator with a newline before it
func PrintSeparatorNewline(char string, width int) {
	fmt.Println("\n" + strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// PrintTransaction prints one transaction log entry as a detail block
func PrintTransaction(entry *models.TransactionLog) {
	fmt.Printf("ID:          %s\n", entry.Id)
	fmt.Printf("Type:        %s\n", entry.Type)
	fmt.Printf("Status:      %s\n", entry.Status)
	fmt.Printf("Amount:      %s %s\n", entry.Amount.String(), entry.Currency)
	fmt.Printf("Description: %s\n", entry.Description)
	if entry.ErrorMessage != "" {
		fmt.Printf("Error:       %s\n", entry.ErrorMessage)
	}
	fmt.Printf("Created:     %s\n", entry.CreatedAt.Format("2006-01-02 15:04:05"))
}

// DescribeError renders an engine failure for the console. Errors from
// outside the engine are returned as is.
func DescribeError(err error) string {
	var engineErr *engine.Error
	if errors.As(err, &engineErr) {
		if engineErr.Message != "" {
			return engineErr.Message
		}
		return string(engineErr.Kind)
	}
	return err.Error()
}
