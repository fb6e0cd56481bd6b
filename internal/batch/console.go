package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"framemill/internal/upscale"
)

// Console renders live per-file progress. Bars are drawn only on a real
// terminal; otherwise progress stays in the structured log.
type Console struct {
	out         io.Writer
	interactive bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
	max int
}

// NewConsole builds a Console for the given file, detecting TTY-ness.
func NewConsole(out *os.File) *Console {
	if out == nil {
		return &Console{}
	}
	return &Console{
		out:         out,
		interactive: isatty.IsTerminal(out.Fd()),
	}
}

// Writer exposes the underlying output stream for table rendering.
func (c *Console) Writer() io.Writer {
	if c.out == nil {
		return io.Discard
	}
	return c.out
}

// Printf writes a plain status line.
func (c *Console) Printf(format string, args ...any) {
	if c.out == nil {
		return
	}
	fmt.Fprintf(c.out, format+"\n", args...)
}

// StartFile begins a progress bar for one source file.
func (c *Console) StartFile(source string, total int) {
	if !c.interactive {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.max = total
	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(filepath.Base(source)),
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Publish feeds a monitor update into the active bar.
func (c *Console) Publish(update upscale.Update) {
	if !c.interactive {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar == nil {
		return
	}
	if update.Total != c.max {
		c.max = update.Total
		c.bar.ChangeMax(update.Total)
	}
	_ = c.bar.Set(update.Completed)
	c.bar.Describe(update.Speed)
}

// FinishFile closes the active bar.
func (c *Console) FinishFile() {
	if !c.interactive {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar == nil {
		return
	}
	_ = c.bar.Finish()
	fmt.Fprintln(c.out)
	c.bar = nil
}
