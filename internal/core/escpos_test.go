package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func TestEscPosGenerator_VendorFraming(t *testing.T) {
	layout := &receiptLayout{}
	layout.text("Hi")
	layout.cut()

	tests := []struct {
		name string
		cfg  PrinterConfig
		want []byte
	}{
		{
			name: "epson pc437",
			cfg:  PrinterConfig{Transport: TransportSerial, Vendor: VendorEpson, Width: 42, CharacterSet: CharsetPC437},
			want: concat(
				[]byte{0x1B, 0x40},
				[]byte{0x1B, 0x74, 0x00},
				[]byte("Hi\n"),
				[]byte{0x1B, 0x64, 0x04},
				[]byte{0x1D, 0x56, 0x00},
			),
		},
		{
			name: "star pc850",
			cfg:  PrinterConfig{Transport: TransportSerial, Vendor: VendorStar, Width: 42, CharacterSet: CharsetPC850},
			want: concat(
				[]byte{0x1B, 0x40},
				[]byte{0x1B, 0x1D, 0x74, 0x04},
				[]byte("Hi\n"),
				[]byte{0x1B, 0x61, 0x04},
				[]byte{0x1B, 0x64, 0x02},
			),
		},
		{
			name: "epson pc860",
			cfg:  PrinterConfig{Transport: TransportSerial, Vendor: VendorEpson, Width: 42, CharacterSet: CharsetPC860},
			want: concat(
				[]byte{0x1B, 0x40},
				[]byte{0x1B, 0x74, 0x03},
				[]byte("Hi\n"),
				[]byte{0x1B, 0x64, 0x04},
				[]byte{0x1D, 0x56, 0x00},
			),
		},
	}

	g := NewEscPosGenerator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Generate(layout, tt.cfg)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Generate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEscPosGenerator_Styles(t *testing.T) {
	layout := &receiptLayout{}
	layout.text("T", centered, bold)

	got, err := NewEscPosGenerator().Generate(layout, PrinterConfig{Vendor: VendorEpson, Width: 42})
	require.NoError(t, err)

	want := concat(
		[]byte{0x1B, 0x40, 0x1B, 0x74, 0x00},
		[]byte{0x1B, 0x61, 0x01},
		[]byte{0x1B, 0x45, 0x01},
		[]byte("T\n"),
		[]byte{0x1B, 0x45, 0x00},
		[]byte{0x1B, 0x61, 0x00},
	)
	assert.Equal(t, want, got)
}

func TestEscPosGenerator_LargeTextHalvesColumns(t *testing.T) {
	layout := &receiptLayout{}
	layout.text("1x Extra large pepperoni", large)

	got, err := NewEscPosGenerator().Generate(layout, PrinterConfig{Vendor: VendorEpson, Width: 32})
	require.NoError(t, err)
	assert.Contains(t, string(got), "1x Extra large\npepperoni\n")
}

func TestEscPosGenerator_RuleSpansWidth(t *testing.T) {
	layout := &receiptLayout{}
	layout.rule()

	for _, width := range []int{32, 42, 48} {
		got, err := NewEscPosGenerator().Generate(layout, PrinterConfig{Vendor: VendorEpson, Width: width})
		require.NoError(t, err)
		assert.True(t, bytes.HasSuffix(got, []byte(strings.Repeat("-", width)+"\n")), "width %d", width)
	}
}

func TestEscPosGenerator_CodePageEncoding(t *testing.T) {
	layout := &receiptLayout{}
	layout.text("Pão")

	got, err := NewEscPosGenerator().Generate(layout, PrinterConfig{Vendor: VendorEpson, Width: 42, CharacterSet: CharsetPC850})
	require.NoError(t, err)
	assert.Contains(t, string(got), "P\xC6o\n")

	got, err = NewEscPosGenerator().Generate(layout, PrinterConfig{Vendor: VendorEpson, Width: 42, CharacterSet: CharsetPC437})
	require.NoError(t, err)
	assert.Contains(t, string(got), "P\x1Ao\n")
}

func TestEscPosGenerator_UnknownVendor(t *testing.T) {
	_, err := NewEscPosGenerator().Generate(&receiptLayout{}, PrinterConfig{Vendor: "citizen", Width: 42})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "vendor", cfgErr.Field)
}
