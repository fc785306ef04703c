package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatCode(t *testing.T) {
	day := time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "FRM-20260214-0001", FormatCode("FRM", day, 1))
	assert.Equal(t, "FRM-20260214-0042", FormatCode("FRM", day, 42))
	assert.Equal(t, "FRM-20260214-10000", FormatCode("FRM", day, 10000)) // width grows past 9999
	assert.Equal(t, "SHOP-20260214-0007", FormatCode("SHOP", day, 7))
}
