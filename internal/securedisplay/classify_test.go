package securedisplay

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasSecureFlag(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{"hex flag set", "  mAttrs={(0,0)(fillxfill) ty=BASE_APPLICATION fl=0x00002000 pfl=0x0}", true},
		{"hex flag clear", "  fl=0x00000000", false},
		{"hex flag among others", "fl=0x81812100 pfl=0x20000", true},
		{"second hex word carries flag", "fl=0x00000100 vsysui=0x2000", true},
		{"uppercase hex", "fl=0X1 wanim=0x1032 fmt=0x4C01", false},
		{"space delimited token", "fl=LAYOUT_IN_SCREEN SECURE HARDWARE_ACCELERATED", true},
		{"pipe delimited token", "fl=LAYOUT_IN_SCREEN|SECURE|HARDWARE_ACCELERATED", true},
		{"token first in flags list", "fl=SECURE|LAYOUT_IN_SCREEN", true},
		{"token at end of line", "fl=LAYOUT_IN_SCREEN SECURE", true},
		{"superstring is not a flag", "fl=LAYOUT_IN_SCREEN INSECURE", false},
		{"suffix superstring", "fl=SECURED_MODE", false},
		{"embedded superstring", "fl=A|NOTSECUREX|B", false},
		{"no flags field", "  SECURE 0x2000", false},
		{"overflowing hex skipped", "fl=0x1ffffffffffffffffffff", false},
		{"overflowing hex then valid", "fl=0x1ffffffffffffffffffff pfl=0x2000", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasSecureFlag(tt.line))
		})
	}
}

func TestScanDump(t *testing.T) {
	dump := strings.Join([]string{
		"WINDOW MANAGER WINDOWS (dumpsys window windows)",
		"  Window #0 Window{1a2b3c u0 StatusBar}:",
		"    mAttrs={(0,0)(fillx63) sim={adjust=pan} ty=STATUS_BAR fl=0x81800008}",
		"  Window #1 Window{4d5e6f u0 com.bank.app/.MainActivity}:",
		"    mAttrs={(0,0)(fillxfill) ty=BASE_APPLICATION fl=0x81812100}",
		"",
	}, "\n")

	secure, err := scanDump(strings.NewReader(dump))
	require.NoError(t, err)
	assert.True(t, secure)

	secure, err = scanDump(strings.NewReader("fl=0x81800008\nfl=0x0\n"))
	require.NoError(t, err)
	assert.False(t, secure)
}

type errReader struct{ data string }

func (r *errReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, errors.New("read failed")
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestScanDumpReportsReadError(t *testing.T) {
	secure, err := scanDump(&errReader{data: "fl=0x0\n"})
	assert.False(t, secure)
	assert.Error(t, err)
}

func TestScanDumpStopsAtFirstMatch(t *testing.T) {
	// The reader fails after the secure line; an early exit never sees it.
	secure, err := scanDump(&errReader{data: "fl=0x2000\n"})
	require.NoError(t, err)
	assert.True(t, secure)
}
