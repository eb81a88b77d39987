package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/Luismorlan/chain_in_go/commands"
	"github.com/Luismorlan/chain_in_go/layout"
	"github.com/Luismorlan/chain_in_go/wallet"
	"github.com/jroimartin/gocui"
)

const USAGE = `connect <host> <port>
    use the full node at host:port
transfer <sender> <receiver> <amount>
    queue a transaction
pending
    list queued transactions
submit
    mine all queued transactions into one block
chain
    print the node's chain
clear
    drop all queued transactions
Ctrl+C
    exit`

var (
	node      *string
	debugMode *bool
)

func init() {
	node = flag.String("node", "", "full node to connect to at startup, as host:port")
	debugMode = flag.Bool("debug_mode", false, "Using debug mode will disable fancy GUI.")
}

// Return a gui handle if not in debug mode.
func ListenOnInput(cmd chan commands.ClientCommand, debugMode bool) *gocui.Gui {
	if debugMode {
		go ParseCommand(cmd)
		return nil
	}
	g, err := layout.CreateGui(cmd, USAGE)
	if err != nil {
		log.Fatalln(err)
	}
	layout.RedirectLog(g)
	go func() {
		if err := g.MainLoop(); err != nil {
			g.Close()
			if err == gocui.ErrQuit {
				os.Exit(0)
			}
			os.Exit(1)
		}
	}()
	return g
}

func main() {
	flag.Parse()

	cmd := make(chan commands.ClientCommand)
	// Start listening on input.
	g := ListenOnInput(cmd, *debugMode)
	w := wallet.NewWallet(g)

	if *node != "" {
		c, err := commands.CreateClientCommand("connect " + strings.Replace(*node, ":", " ", 1))
		if err != nil {
			log.Fatalf("invalid -node %s: %v", *node, err)
		}
		go func() { cmd <- c }()
	}

	HandleCommand(cmd, w)
}

// Parse command from stdio.
func ParseCommand(cmd chan commands.ClientCommand) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		text, err := reader.ReadString('\n')
		if err != nil {
			log.Println("stdin closed, exiting")
			os.Exit(0)
		}
		text = strings.TrimRight(text, "\r\n")
		c, err := commands.CreateClientCommand(text)
		if err != nil {
			log.Println(err)
			continue
		}
		cmd <- c
	}
}

func HandleCommand(cmd chan commands.ClientCommand, w *wallet.Wallet) {
	for c := range cmd {
		switch c.Op {
		case commands.CONNECT:
			w.SetFullNodeConnection(c.Args[0], c.Args[1])
			w.Log("using full node " + w.FullNodeClient.BaseURL())
		case commands.TRANSFER:
			amount, _ := strconv.ParseUint(c.Args[2], 10, 64)
			w.Transfer(c.Args[0], c.Args[1], amount)
			w.Log(fmt.Sprintf("queued %s -> %s: %d", c.Args[0], c.Args[1], amount))
		case commands.PENDING:
			txs := w.Pending()
			if len(txs) == 0 {
				w.Log("no pending transactions")
				continue
			}
			for i, tx := range txs {
				w.Log(fmt.Sprintf("%d. %s -> %s: %d", i, tx.Sender, tx.Receiver, tx.Amount))
			}
		case commands.SUBMIT:
			w.Log("mining, this may take a while...")
			n, err := w.Submit(context.Background())
			if err != nil {
				w.Log("fail to submit: " + err.Error())
				continue
			}
			w.Log(fmt.Sprintf("block with %d transactions added", n))
		case commands.CHAIN:
			s, err := w.ChainSummary(context.Background())
			if err != nil {
				w.Log("fail to get chain: " + err.Error())
				continue
			}
			w.Log(s)
		case commands.CLEAR:
			w.Clear()
			w.Log("pending transactions dropped")
		default:
			w.Log(fmt.Sprintf("Unimplemented command: %d", c.Op))
		}
	}
}
