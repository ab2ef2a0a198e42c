package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Stageflow banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  ___ _                    __ _", "#818cf8"},
		{" / __| |_ __ _ __ _ ___  / _| |_____ __ __", "#a78bfa"},
		{" \\__ \\  _/ _` / _` / -_)|  _| / _ \\ V  V /", "#c084fc"},
		{" |___/\\__\\__,_\\__, \\___||_| |_\\___/\\_/\\_/", "#e879f9"},
		{"              |___/", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
