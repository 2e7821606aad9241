package gcs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		accountID string
		filename  string
		want      string
	}{
		{name: "plain", accountID: "acct-1", filename: "april.pdf", want: "raw/acct-1/2024/04/02/id-april.pdf"},
		{name: "path stripped", accountID: "acct-1", filename: "../../etc/passwd", want: "raw/acct-1/2024/04/02/id-passwd"},
		{name: "spaces replaced", accountID: "acct 1", filename: "My Statement (1).csv", want: "raw/acct_1/2024/04/02/id-My_Statement_1_.csv"},
		{name: "empty name", accountID: "acct-1", filename: "", want: "raw/acct-1/2024/04/02/id-document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objectName(tt.accountID, tt.filename, "id", at))
		})
	}
}
