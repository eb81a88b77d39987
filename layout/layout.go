package layout

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/Luismorlan/chain_in_go/commands"
	"github.com/jroimartin/gocui"
)

const (
	PAST_CMD_VIEW = "pastcommand"
	INPUT_VIEW    = "input"
	LOGGER_VIEW   = "logger"
	MANUAL_VIEW   = "manual"
)

// The last line typed in, waiting to be echoed in the past command view.
type pendingLine struct {
	str   string
	ready bool
	m     sync.Mutex
}

func (c *pendingLine) set(s string) {
	c.m.Lock()
	defer c.m.Unlock()
	c.str = s
	c.ready = true
}

// take returns the pending line once.
func (c *pendingLine) take() (string, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if !c.ready {
		return "", false
	}
	c.ready = false
	return c.str, true
}

// PastCmd is the ViewManager that logs past command.
type PastCmd struct {
	name    string
	command *pendingLine
}

// Input box for node commands.
type FullNodeInput struct {
	name    string
	cmd     chan commands.Command
	command *pendingLine
}

// Input box for wallet commands.
type WalletInput struct {
	name    string
	cmd     chan commands.ClientCommand
	command *pendingLine
}

type Logger struct {
	name string
}

type Manual struct {
	name string
	text string
}

func (pc *PastCmd) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Bottom left corner.
	v, err := g.SetView(pc.name, 1, maxY*2/3, maxX/3, maxY-6)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Autoscroll = true
	v.Wrap = true

	if s, ok := pc.command.take(); ok {
		fmt.Fprintln(v, "> "+s)
	}
	return nil
}

func layoutInput(g *gocui.Gui, name string, editor gocui.Editor) error {
	maxX, maxY := g.Size()
	// Bottom, full width.
	v, err := g.SetView(name, 1, maxY-5, maxX-1, maxY-1)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Wrap = true
	v.Autoscroll = true
	v.Editor = editor
	v.Editable = true
	return nil
}

func (i *FullNodeInput) Layout(g *gocui.Gui) error {
	return layoutInput(g, i.name, i)
}

func (w *WalletInput) Layout(g *gocui.Gui) error {
	return layoutInput(g, w.name, w)
}

func (l *Logger) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Right side.
	v, err := g.SetView(l.name, maxX/3+1, 1, maxX-1, maxY-6)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Autoscroll = true
	v.Wrap = true
	return nil
}

func (m *Manual) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Top left corner.
	v, err := g.SetView(m.name, 1, 1, maxX/3, maxY*2/3-1)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Wrap = true
	v.Clear()
	fmt.Fprintln(v, m.text)
	return nil
}

// edit handles a key in an input view. On enter the line is handed to submit and
// echoed, with the parse error if there was one.
func edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier, command *pendingLine, submit func(string) error) {
	switch {
	case key == gocui.KeyEnter:
		// Read buffer.
		s := strings.Replace(v.Buffer(), "\n", "", -1)
		if err := submit(s); err != nil {
			s = s + "\n" + err.Error()
		}
		command.set(s)

		// Reset cursor.
		v.Clear()
		v.SetOrigin(0, 0)
		v.SetCursor(0, 0)
	case ch != 0 && mod == 0:
		v.EditWrite(ch)
	case key == gocui.KeySpace:
		v.EditWrite(' ')
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	}
}

func (i *FullNodeInput) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	edit(v, key, ch, mod, i.command, func(s string) error {
		op, err := commands.CreateCommand(s)
		if err != nil {
			return err
		}
		// Don't block the UI loop on the command handler.
		go func() { i.cmd <- op }()
		return nil
	})
}

func (w *WalletInput) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	edit(v, key, ch, mod, w.command, func(s string) error {
		op, err := commands.CreateClientCommand(s)
		if err != nil {
			return err
		}
		go func() { w.cmd <- op }()
		return nil
	})
}

func SetFocus(name string) func(g *gocui.Gui) error {
	return func(g *gocui.Gui) error {
		_, err := g.SetCurrentView(name)
		return err
	}
}

// Create a GUI, using the command channel to pass commands on. cmd is either a
// chan commands.Command (full node) or a chan commands.ClientCommand (wallet).
func CreateGui(cmd interface{}, manual string) (*gocui.Gui, error) {
	command := &pendingLine{}
	var input gocui.Manager
	switch c := cmd.(type) {
	case chan commands.Command:
		input = &FullNodeInput{name: INPUT_VIEW, cmd: c, command: command}
	case chan commands.ClientCommand:
		input = &WalletInput{name: INPUT_VIEW, cmd: c, command: command}
	default:
		return nil, fmt.Errorf("invalid command channel %T", cmd)
	}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	g.Cursor = true

	pc := &PastCmd{name: PAST_CMD_VIEW, command: command}
	l := &Logger{name: LOGGER_VIEW}
	m := &Manual{name: MANUAL_VIEW, text: manual}
	focus := gocui.ManagerFunc(SetFocus(INPUT_VIEW))
	g.SetManager(pc, input, l, m, focus)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		g.Close()
		return nil, err
	}

	return g, nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

// Print a line into the logger view.
func Log(g *gocui.Gui, msg string) {
	g.Update(func(g *gocui.Gui) error {
		v, err := g.View(LOGGER_VIEW)
		if err != nil {
			return nil
		}
		fmt.Fprintln(v, msg)
		return nil
	})
}

type viewWriter struct {
	g *gocui.Gui
}

func (w viewWriter) Write(p []byte) (int, error) {
	Log(w.g, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Writer returns an io.Writer that appends to the logger view, for use with
// log.SetOutput.
func Writer(g *gocui.Gui) io.Writer {
	return viewWriter{g: g}
}

// RedirectLog sends the standard logger into the logger view.
func RedirectLog(g *gocui.Gui) {
	log.SetOutput(Writer(g))
}
