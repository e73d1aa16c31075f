package filesize_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/filesize"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected filesize.FileSize
	}{
		{"0", 0},
		{"1024", 1024},
		{"1KiB", filesize.KiB},
		{"100MiB", 100 * filesize.MiB},
		{"100 MiB", 100 * filesize.MiB},
		{"1 GiB", filesize.GiB},
		{"10KB", 10000},
		{"  2MiB ", 2 * filesize.MiB},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := filesize.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "-5MiB", "12 parsecs"} {
		t.Run(input, func(t *testing.T) {
			_, err := filesize.Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "100 MiB", (100 * filesize.MiB).String())
	assert.Equal(t, "0 B", filesize.FileSize(0).String())
	assert.Equal(t, "1.0 KiB", filesize.KiB.String())
}

func TestJSON(t *testing.T) {
	t.Run("MarshalAsBytes", func(t *testing.T) {
		out, err := json.Marshal(struct {
			Max filesize.FileSize `json:"max"`
		}{Max: 2 * filesize.KiB})
		require.NoError(t, err)
		assert.JSONEq(t, `{"max": 2048}`, string(out))
	})

	t.Run("UnmarshalNumber", func(t *testing.T) {
		var size filesize.FileSize
		require.NoError(t, json.Unmarshal([]byte(`4096`), &size))
		assert.Equal(t, 4*filesize.KiB, size)
	})

	t.Run("UnmarshalString", func(t *testing.T) {
		var size filesize.FileSize
		require.NoError(t, json.Unmarshal([]byte(`"100MiB"`), &size))
		assert.Equal(t, int64(104857600), size.Bytes())
	})

	t.Run("UnmarshalNegative", func(t *testing.T) {
		var size filesize.FileSize
		assert.ErrorIs(t, json.Unmarshal([]byte(`-1`), &size), filesize.ErrNegativeSize)
	})
}

func TestSetValue(t *testing.T) {
	var size filesize.FileSize
	require.NoError(t, size.SetValue("5 MiB"))
	assert.Equal(t, 5*filesize.MiB, size)
	assert.Error(t, size.SetValue("lots"))

	require.NoError(t, size.SetValue(" "))
	assert.Equal(t, filesize.FileSize(0), size)
}
