package commands

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

type Operation int

var portRegex = regexp.MustCompile("^[0-9]{2,5}$")

const (
	DEFAULT = iota
	// Recheck every hash and link in the ledger.
	VALIDATE
	// Find the first block whose hash misses the difficulty.
	AUDIT
	// Print the last n blocks.
	SHOW
	// Print the node counters.
	STATS
	// Render the last n blocks as a graphviz file.
	DOT
	// Stop serving, save the ledger and exit.
	QUIT
)

// A command contains a operation and many arguments.
type Command struct {
	Op   Operation
	Args []string
}

func (c Command) IsValid() bool {
	switch c.Op {
	case VALIDATE, AUDIT, STATS, QUIT:
		return len(c.Args) == 0
	case SHOW:
		if len(c.Args) != 1 {
			return false
		}
		// depth must be a positive number.
		return isPositiveInt(c.Args[0])
	case DOT:
		if len(c.Args) != 2 {
			return false
		}
		return isPositiveInt(c.Args[0]) && c.Args[1] != ""
	default:
		return false
	}
}

// Depth is the block count argument of SHOW and DOT.
func (c Command) Depth() int {
	if len(c.Args) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(c.Args[0])
	return n
}

func isPositiveInt(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0
}

// From string, create a command. Extra spaces between words are ignored.
func CreateCommand(s string) (Command, error) {
	ss := strings.Fields(s)
	if len(ss) == 0 {
		return Command{}, errors.New("command is empty")
	}
	cmd := Command{}
	switch ss[0] {
	case "validate":
		cmd.Op = VALIDATE
	case "audit":
		cmd.Op = AUDIT
	case "show":
		cmd.Op = SHOW
	case "stats":
		cmd.Op = STATS
	case "dot":
		cmd.Op = DOT
	case "quit", "exit":
		cmd.Op = QUIT
	}
	cmd.Args = ss[1:]
	if !cmd.IsValid() {
		return Command{}, errors.New("invalid command")
	}
	return cmd, nil
}

// Create a brand new command with default operation.
func NewDefaultCommand() Command {
	return Command{
		Op: DEFAULT,
	}
}

func (c Command) IsDefault() bool {
	return c.Op == DEFAULT
}
