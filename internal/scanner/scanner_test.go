package scanner_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/scanner"
)

func TestScanPairsTemplateViewModelAndStylesheetByBaseName(t *testing.T) {
	fsys := fstest.MapFS{
		"views/user-card.html": {Data: []byte("<div></div>")},
		"views/UserCard.go":    {Data: []byte("package views")},
		"views/user_card.css":  {Data: []byte(".card{}")},
		"views/orphan.html":    {Data: []byte("<p></p>")},
	}

	units, err := scanner.Scan(fsys, ".", scanner.Options{})
	require.NoError(t, err)
	require.Len(t, units, 2)

	var card scanner.Unit
	for _, u := range units {
		if u.BaseName == "user-card" {
			card = u
		}
	}
	require.Equal(t, "views/user-card.html", card.Template)
	require.Equal(t, "views/UserCard.go", card.ViewModel)
	require.Equal(t, "views/user_card.css", card.Stylesheet)
}

func TestScanSkipsExcludedDirectories(t *testing.T) {
	fsys := fstest.MapFS{
		"node_modules/pkg/widget.html": {Data: []byte("<div></div>")},
		"src/widget.html":              {Data: []byte("<div></div>")},
	}

	units, err := scanner.Scan(fsys, ".", scanner.Options{})
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, "src/widget.html", units[0].Template)
}

func TestScanSkipsDotDirectories(t *testing.T) {
	fsys := fstest.MapFS{
		".git/hooks/pre-commit.html": {Data: []byte("x")},
		"app.html":                   {Data: []byte("<div></div>")},
	}

	units, err := scanner.Scan(fsys, ".", scanner.Options{})
	require.NoError(t, err)
	require.Len(t, units, 1)
}
