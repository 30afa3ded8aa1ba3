package timetable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVisualLatinPassthrough(t *testing.T) {
	require.Equal(t, "Calculus 1 - 02", Visual("Calculus 1 - 02"))
	require.Equal(t, "", Visual(""))
}

func TestVisualHebrew(t *testing.T) {
	require.Equal(t, "הרבגלא", Visual("אלגברה"))
}

func TestVisualMixed(t *testing.T) {
	// the Latin run keeps its own direction inside the flipped line
	require.Equal(t, "Calculus הרבגלא", Visual("אלגברה Calculus"))
}

func TestVisualMirrorsBrackets(t *testing.T) {
	require.Equal(t, "(האצרה) הרבגלא", Visual("אלגברה (הרצאה)"))
}
