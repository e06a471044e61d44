package ai

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hy4k/aurelius/internal/domain"
)

// transformModelOutput converts raw model output into a validated ParseResult.
// Transaction IDs are assigned here, at ingestion time; the model never
// provides them. Any invalid record fails the whole statement: partial
// results are never returned.
func transformModelOutput(raw map[string]interface{}) (*domain.ParseResult, error) {
	bankName, err := getStringField(raw, "bank_name", false)
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}
	accountNumber, err := getStringField(raw, "account_number", false)
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}
	currency, err := getStringField(raw, "currency", false)
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}

	txAny, ok := raw["transactions"]
	if !ok {
		return nil, fmt.Errorf("transformModelOutput: missing 'transactions' key in model output")
	}
	txSlice, ok := txAny.([]interface{})
	if !ok {
		return nil, fmt.Errorf("transformModelOutput: 'transactions' is %T, want []interface{}", txAny)
	}

	result := &domain.ParseResult{
		BankName:      bankName,
		AccountNumber: accountNumber,
		Currency:      strings.ToUpper(currency),
		Transactions:  make([]*domain.Transaction, 0, len(txSlice)),
	}

	for i, item := range txSlice {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("transformModelOutput: element %d is %T, want map[string]interface{}", i, item)
		}

		tx, err := transformTransaction(obj)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		result.Transactions = append(result.Transactions, tx)
	}

	return result, nil
}

func transformTransaction(obj map[string]interface{}) (*domain.Transaction, error) {
	dateStr, err := getStringField(obj, "date", true)
	if err != nil {
		return nil, err
	}
	desc, err := getStringField(obj, "description", true)
	if err != nil {
		return nil, err
	}
	typeStr, err := getStringField(obj, "type", true)
	if err != nil {
		return nil, err
	}
	category, err := getStringField(obj, "category", true)
	if err != nil {
		return nil, err
	}
	amount, err := getFloat64Field(obj, "amount", true)
	if err != nil {
		return nil, err
	}
	isBusiness, err := getBoolField(obj, "is_business")
	if err != nil {
		return nil, err
	}
	anomalyPtr, err := getOptionalStringField(obj, "anomaly")
	if err != nil {
		return nil, err
	}

	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return nil, err
	}
	txType, err := domain.ParseTransactionType(typeStr)
	if err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, fmt.Errorf("negative amount %v: sign must be carried by type", amount)
	}

	anomaly := ""
	if anomalyPtr != nil {
		anomaly = *anomalyPtr
	}

	return &domain.Transaction{
		ID:          uuid.New().String(),
		Date:        date,
		Description: desc,
		Amount:      decimal.NewFromFloat(amount),
		Type:        txType,
		Category:    category,
		IsBusiness:  isBusiness,
		Anomaly:     anomaly,
	}, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int: // unlikely from encoding/json, but harmless to support
		return float64(val), nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

func getBoolField(m map[string]interface{}, key string) (bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, nil
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	default:
		return false, fmt.Errorf("field %q has type %T, want bool", key, v)
	}
}
