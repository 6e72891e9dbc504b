package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/insightforge/backend/internal/models"
)

// maxSafeFloat bounds the magnitude of cells typed as numbers; larger values
// cannot be represented exactly and stay text.
const maxSafeFloat = 1 << 53

// InferValue converts a raw CSV cell into a typed value.
// Empty cells become Null, cells matching the number grammar become Number,
// everything else is kept verbatim as Text.
func InferValue(raw string) models.Value {
	if raw == "" {
		return models.Null()
	}

	s := strings.TrimSpace(raw)
	if isNumberFast(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > -maxSafeFloat && f < maxSafeFloat {
			return models.Number(f)
		}
	}

	return models.Text(raw)
}

// isNumberFast checks the decimal grammar -?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?
// without using regex.
func isNumberFast(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}

	intDigits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		intDigits++
	}

	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			fracDigits++
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		expDigits := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			expDigits++
		}
		if expDigits == 0 {
			return false
		}
	}

	return i == len(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// IsNumericText reports whether s parses fully as a finite decimal number.
func IsNumericText(s string) bool {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "xX") {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}
