package display

import (
	"io"

	"github.com/fatih/color"
)

const banner = `           __
 _ __ ___ / _|_ __ __ _ _ __ ___   ___
| '__/ _ \ |_| '__/ _` + "`" + ` | '_ ` + "`" + ` _ \ / _ \
| | |  __/  _| | | (_| | | | | | |  __/
|_|  \___|_| |_|  \__,_|_| |_| |_|\___|
`

// PrintBanner writes the ASCII art banner to w, in magenta when colors are
// enabled.
func PrintBanner(w io.Writer) {
	color.New(color.FgHiMagenta, color.Bold).Fprint(w, banner)
}
