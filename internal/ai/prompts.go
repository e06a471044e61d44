package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// buildExtractionPrompt returns the instruction block sent alongside the
// statement file. The model must answer with a single strict-JSON object.
func buildExtractionPrompt() string {
	var b strings.Builder

	b.WriteString("You are a financial statement parser for bank statements (PDF, CSV, XLSX or a photo/scan).\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Parse ALL transactions in the attached statement.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a single JSON object with these fields:\n")
	b.WriteString("  - \"bank_name\": string\n")
	b.WriteString("  - \"account_number\": string, masked to the last 4 digits (e.g. \"****1234\")\n")
	b.WriteString("  - \"currency\": string, ISO 4217 code (e.g. \"USD\")\n")
	b.WriteString("  - \"transactions\": array of objects\n\n")
	b.WriteString("Each transaction object must have these fields:\n")
	b.WriteString("- \"date\": string, ISO format \"YYYY-MM-DD\"\n")
	b.WriteString("- \"description\": string\n")
	b.WriteString("- \"amount\": number, ALWAYS non-negative (direction goes in \"type\")\n")
	b.WriteString("- \"type\": \"debit\" for money out, \"credit\" for money in\n")
	b.WriteString("- \"category\": string, a short spending category (e.g. \"Rent\", \"Groceries\", \"Salary\")\n")
	b.WriteString("- \"is_business\": boolean, true when the transaction looks like business activity\n")
	b.WriteString("- \"anomaly\": string or null, a short note when the transaction looks unusual (duplicate, unusually large, suspicious merchant)\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- If the statement has separate \"paid out\" / \"paid in\" columns, map them to type, never to a signed amount.\n")
	b.WriteString("- If the account number cannot be determined, use \"****\".\n")
	b.WriteString("- Set \"anomaly\" to null for ordinary transactions; do not flag everything.\n\n")
	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Do NOT use ```json or any Markdown.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")

	return b.String()
}

// buildCategorizationPrompt embeds the ordered description list into the
// batch-categorization instruction block. The response must be an array of
// the same length, aligned by position.
func buildCategorizationPrompt(descriptions []string) (string, error) {
	payload, err := json.Marshal(descriptions)
	if err != nil {
		return "", fmt.Errorf("buildCategorizationPrompt: marshal descriptions: %w", err)
	}

	var b strings.Builder

	b.WriteString("You are a transaction categorizer.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Below is a JSON array of bank transaction descriptions.\n")
	b.WriteString("- Assign each one a short spending category label (e.g. \"Food\", \"Travel\", \"Rent\", \"Salary\").\n")
	b.WriteString("- Output STRICT JSON only: a JSON array of strings.\n")
	b.WriteString("- The output array MUST have exactly the same length as the input array,\n")
	b.WriteString("  with the label at position i categorizing the description at position i.\n\n")
	b.WriteString("Descriptions:\n")
	b.Write(payload)
	b.WriteString("\n\nReturn ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")

	return b.String(), nil
}
