package parser

import "github.com/docktail/fleet/internal/shared/model"

// ParsePlainText is the identity parser: it fills only Raw. It never fails
// and is the universal fallback for any parse error in any other format.
func ParsePlainText(line []byte) (model.ParsedLog, error) {
	return model.ParsedLog{Raw: line}, nil
}
