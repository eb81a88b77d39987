package commands

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

const (
	// do nothing operation
	NOOP = iota
	// Point the wallet at a full node with host and port
	CONNECT
	// Queue a transfer: sender receiver amount
	TRANSFER
	// List queued transfers
	PENDING
	// Send all queued transfers as one block
	SUBMIT
	// Print the full node's chain summary
	CHAIN
	// Drop all queued transfers
	CLEAR
)

type ClientCommand struct {
	Op   Operation
	Args []string
}

func (c ClientCommand) IsValid() bool {
	switch c.Op {
	case TRANSFER:
		if len(c.Args) != 3 {
			return false
		}
		_, err := strconv.ParseUint(c.Args[2], 10, 64)
		return err == nil
	case PENDING, SUBMIT, CHAIN, CLEAR:
		return len(c.Args) == 0
	case CONNECT:
		if len(c.Args) != 2 {
			return false
		}
		host := c.Args[0]
		port := c.Args[1]
		return (host == "localhost" || net.ParseIP(host) != nil) && portRegex.MatchString(port)
	default:
		return false
	}
}

func CreateClientCommand(s string) (ClientCommand, error) {
	ss := strings.Fields(s)
	if len(ss) == 0 {
		return ClientCommand{}, errors.New("command is empty")
	}
	cmd := ClientCommand{}
	switch ss[0] {
	case "connect":
		cmd.Op = CONNECT
	case "transfer":
		cmd.Op = TRANSFER
	case "pending":
		cmd.Op = PENDING
	case "submit":
		cmd.Op = SUBMIT
	case "chain":
		cmd.Op = CHAIN
	case "clear":
		cmd.Op = CLEAR
	default:
		cmd.Op = NOOP
	}
	cmd.Args = ss[1:]
	if !cmd.IsValid() {
		return ClientCommand{}, errors.New("invalid command")
	}
	return cmd, nil
}
