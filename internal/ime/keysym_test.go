package ime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSym(t *testing.T) {
	tests := []struct {
		name    string
		want    Sym
		wantErr bool
	}{
		{"space", SymSpace, false},
		{"Space", SymSpace, false},
		{"grave", '`', false},
		{"a", 'a', false},
		{"Shift_L", SymShiftL, false},
		{"F13", SymNone, true},
		{" ", SymNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSym(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSymClasses(t *testing.T) {
	assert.True(t, SymShiftL.IsShift())
	assert.True(t, SymShiftR.IsShift())
	assert.False(t, Sym('A').IsShift())

	assert.True(t, Sym('!').IsPrintable())
	assert.True(t, Sym('~').IsPrintable())
	assert.False(t, SymSpace.IsPrintable())
	assert.False(t, SymReturn.IsPrintable())
}

func TestModifierString(t *testing.T) {
	assert.Equal(t, "Control", ModCtrl.String())
	assert.Equal(t, "Mod1", ModAlt.String())
	assert.Equal(t, "Mod4", ModLogo.String())
	assert.Equal(t, "Shift", ModShift.String())
}
