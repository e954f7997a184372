package utils_test

import (
	"testing"

	"github.com/flexnote/compute-broker/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestSplitCSV(t *testing.T) {
	require.Equal(t, []string{"http://localhost:8888", "https://notebooks.example.com"},
		utils.SplitCSV(" http://localhost:8888, ,https://notebooks.example.com "))
	require.Empty(t, utils.SplitCSV(""))
}

func TestPtrCopies(t *testing.T) {
	v := 3
	p := utils.Ptr(v)
	v = 4
	require.Equal(t, 3, *p)
}
