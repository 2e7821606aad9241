package domain

import (
	"fmt"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
)

// SignConvention is the closed set of ways a tabular source encodes direction.
// Every switch over it must handle all members.
type SignConvention int

const (
	// SignedAmount: one amount column, negative is money out.
	SignedAmount SignConvention = iota + 1
	// InvertedAmount: one amount column, positive is money out (typical card exports).
	InvertedAmount
	// DebitCredit: separate debit (out) and credit (in) columns.
	DebitCredit
)

var signConventionNames = map[SignConvention]string{
	SignedAmount:   "signed",
	InvertedAmount: "inverted",
	DebitCredit:    "debit_credit",
}

func (s SignConvention) String() string {
	if n, ok := signConventionNames[s]; ok {
		return n
	}
	return fmt.Sprintf("SignConvention(%d)", int(s))
}

// IsValid reports whether s is a member of the closed set.
func (s SignConvention) IsValid() bool {
	_, ok := signConventionNames[s]
	return ok
}

// MarshalText implements encoding.TextMarshaler. The zero value encodes as "".
func (s SignConvention) MarshalText() ([]byte, error) {
	if s == 0 {
		return []byte{}, nil
	}
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: unknown sign convention %d", apperrors.ErrValidation, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SignConvention) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = 0
		return nil
	}
	for k, v := range signConventionNames {
		if v == string(text) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("%w: unknown sign convention %q", apperrors.ErrValidation, string(text))
}

// ErrInvalidMapping is returned when a column mapping cannot drive row mapping.
var ErrInvalidMapping = fmt.Errorf("%w: invalid column mapping", apperrors.ErrValidation)

// ColumnMapping assigns semantic roles to column indices of a tabular source.
// A nil index means the role is unassigned.
type ColumnMapping struct {
	HasHeader         bool           `json:"hasHeader"`
	DateColumn        *int           `json:"dateColumn" validate:"omitempty,min=0"`
	DescriptionColumn *int           `json:"descriptionColumn" validate:"omitempty,min=0"`
	AmountColumn      *int           `json:"amountColumn" validate:"omitempty,min=0"`
	DebitColumn       *int           `json:"debitColumn" validate:"omitempty,min=0"`
	CreditColumn      *int           `json:"creditColumn" validate:"omitempty,min=0"`
	SignConvention    SignConvention `json:"signConvention"`
	DateFormat        string         `json:"dateFormat,omitempty"` // Format name understood by the date disambiguator
}

// Col returns a pointer to i for building mappings.
func Col(i int) *int {
	return &i
}

// Validate checks that the mapping can produce transactions.
func (m ColumnMapping) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	if m.DateColumn == nil {
		return fmt.Errorf("%w: no date column", ErrInvalidMapping)
	}
	switch m.SignConvention {
	case SignedAmount, InvertedAmount:
		if m.AmountColumn == nil {
			return fmt.Errorf("%w: %s convention needs an amount column", ErrInvalidMapping, m.SignConvention)
		}
		if m.DebitColumn != nil || m.CreditColumn != nil {
			return fmt.Errorf("%w: %s convention cannot use debit/credit columns", ErrInvalidMapping, m.SignConvention)
		}
	case DebitCredit:
		if m.DebitColumn == nil || m.CreditColumn == nil {
			return fmt.Errorf("%w: debit_credit convention needs both debit and credit columns", ErrInvalidMapping)
		}
		if m.AmountColumn != nil {
			return fmt.Errorf("%w: debit_credit convention cannot use an amount column", ErrInvalidMapping)
		}
	default:
		return fmt.Errorf("%w: unknown sign convention %d", ErrInvalidMapping, int(m.SignConvention))
	}
	return nil
}

// Recognized reports whether the mapping has the roles needed to produce rows.
func (m ColumnMapping) Recognized() bool {
	return m.Validate() == nil
}

// MaxColumn returns the highest assigned column index, or -1.
func (m ColumnMapping) MaxColumn() int {
	highest := -1
	for _, c := range []*int{m.DateColumn, m.DescriptionColumn, m.AmountColumn, m.DebitColumn, m.CreditColumn} {
		if c != nil && *c > highest {
			highest = *c
		}
	}
	return highest
}
