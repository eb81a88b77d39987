package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Luismorlan/chain_in_go/commands"
	"github.com/Luismorlan/chain_in_go/config"
	"github.com/Luismorlan/chain_in_go/full_node"
	"github.com/Luismorlan/chain_in_go/layout"
	"github.com/Luismorlan/chain_in_go/model"
	"github.com/Luismorlan/chain_in_go/utils"
	"github.com/Luismorlan/chain_in_go/visualize"
	"github.com/jroimartin/gocui"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

const USAGE = `validate
    recheck every hash and link
audit
    find the first block missing the difficulty
show <n>
    print the last n blocks
stats
    print node counters
dot <n> <path>
    write the last n blocks as graphviz
quit
    stop serving, save and exit`

const (
	CONSOLE_NONE  = "none"
	CONSOLE_STDIN = "stdin"
	CONSOLE_GUI   = "gui"
)

var (
	configPath *string
	console    *string
)

func init() {
	configPath = flag.String("config_path", "", "path to full node config, defaults are used if empty")
	console = flag.String("console", CONSOLE_STDIN, "operator console: none, stdin or gui")
}

// The rotating log file, nil if none is configured.
func logFile(cfg config.AppConfig) io.Writer {
	if cfg.LOG_FILE == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   cfg.LOG_FILE,
		MaxSize:    100, // megabytes
		MaxBackups: 14,
		MaxAge:     14, // days
		Compress:   true,
		LocalTime:  true,
	}
}

// Send the standard logger to console and, if set, to file.
func setLogOutput(console io.Writer, file io.Writer) {
	if file == nil {
		log.SetOutput(console)
		return
	}
	log.SetOutput(io.MultiWriter(console, file))
}

// Start reading operator commands. Returns a gui handle in gui mode. requestQuit is
// called once the console goes away.
func ListenOnInput(cmd chan commands.Command, mode string, requestQuit func()) *gocui.Gui {
	switch mode {
	case CONSOLE_NONE:
		return nil
	case CONSOLE_STDIN:
		go ParseCommand(cmd, requestQuit)
		return nil
	}
	g, err := layout.CreateGui(cmd, USAGE)
	if err != nil {
		log.Fatalln(err)
	}
	go func() {
		if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
			log.Println("console failed:", err)
		}
		requestQuit()
	}()
	return g
}

// Parse command from stdio.
func ParseCommand(cmd chan commands.Command, requestQuit func()) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		text, err := reader.ReadString('\n')
		if err != nil {
			log.Println("stdin closed, console disabled")
			return
		}
		text = strings.TrimRight(text, "\r\n")
		c, err := commands.CreateCommand(text)
		if err != nil {
			log.Println(err)
			continue
		}
		if c.Op == commands.QUIT {
			requestQuit()
			return
		}
		cmd <- c
	}
}

func HandleCommand(cmd chan commands.Command, node *full_node.FullNode, requestQuit func()) {
	for c := range cmd {
		switch c.Op {
		case commands.VALIDATE:
			valid, err := node.Validate()
			if err != nil {
				log.Println(err)
				continue
			}
			log.Println("ledger valid:", valid)
		case commands.AUDIT:
			idx, found, err := node.Audit()
			if err != nil {
				log.Println(err)
				continue
			}
			if found {
				log.Printf("block %d does not meet the ledger difficulty", idx)
				continue
			}
			log.Println("every block meets the ledger difficulty")
		case commands.SHOW:
			l, err := node.ReadSnapshot()
			if err != nil {
				log.Println(err)
				continue
			}
			blocks := l.LastBlocks(c.Depth())
			first := len(l.Chain) - len(blocks)
			for i := range blocks {
				b := &blocks[i]
				log.Printf("#%d hash %s prev %s nonce %d time %d txs %d",
					first+i, utils.ShortHex(b.Hash, 8), utils.ShortHex(b.PrevHash, 8), b.Nonce, b.Timestamp, len(b.Transactions))
			}
		case commands.STATS:
			s, err := node.Stats()
			if err != nil {
				log.Println(err)
				continue
			}
			log.Printf("%+v", s)
		case commands.DOT:
			l, err := node.ReadSnapshot()
			if err != nil {
				log.Println(err)
				continue
			}
			if err := visualize.RenderToFile(&l, c.Depth(), c.Args[1]); err != nil {
				log.Println("failed to render:", err)
				continue
			}
			log.Println("wrote", c.Args[1])
		case commands.QUIT:
			requestQuit()
		default:
			log.Print("Unrecognized command:", c)
		}
	}
}

// WatchSignals turns the first signal into a quit request.
func WatchSignals(sigs <-chan os.Signal, requestQuit func()) {
	s, ok := <-sigs
	if !ok {
		return
	}
	log.Println("Received", s)
	requestQuit()
}

// StartLedger loads or creates the ledger and returns it with the context its mining
// runs under. Mining only stops when the process shuts down, never per request. A
// quit before the ledger is ready cancels the genesis seal.
func StartLedger(cfg config.AppConfig, quit <-chan struct{}) (*model.Ledger, context.Context, context.CancelFunc, error) {
	miningCtx, cancelMining := context.WithCancel(context.Background())
	loaded := make(chan struct{})
	go func() {
		select {
		case <-quit:
			cancelMining()
		case <-loaded:
		}
	}()

	l, _, err := utils.LoadOrCreateLedger(miningCtx, cfg.SNAPSHOT_PATH, cfg.DIFFICULTY, time.Now)
	close(loaded)
	if err != nil {
		cancelMining()
		return nil, nil, nil, err
	}
	return l, miningCtx, cancelMining, nil
}

func main() {
	flag.Parse()

	cfg, err := config.ParseAppConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *console != CONSOLE_NONE && *console != CONSOLE_STDIN && *console != CONSOLE_GUI {
		log.Fatalf("unknown console %q", *console)
	}

	quit := make(chan struct{})
	var once sync.Once
	requestQuit := func() { once.Do(func() { close(quit) }) }

	// Signals are honored from here on, including while genesis is being mined.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go WatchSignals(sigs, requestQuit)

	// A command channel that takes operator commands and handles them one by one.
	cmd := make(chan commands.Command)
	g := ListenOnInput(cmd, *console, requestQuit)
	file := logFile(cfg)
	if g != nil {
		// Writing to stderr would tear the gui apart.
		setLogOutput(layout.Writer(g), file)
	} else {
		setLogOutput(os.Stderr, file)
	}
	log.Printf("%+v", cfg)

	l, miningCtx, cancelMining, err := StartLedger(cfg, quit)
	if errors.Cause(err) == utils.ErrMiningInterrupted {
		if g != nil {
			g.Close()
		}
		log.Println("Interrupted before the ledger was ready, nothing to save")
		return
	}
	if err != nil {
		log.Fatal(err)
	}
	defer cancelMining()
	node := full_node.NewFullNode(miningCtx, l)
	log.Println("Full node", node.ID())

	server := full_node.NewFullNodeServer(cfg, node)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Println("http server failed:", err)
			requestQuit()
		}
	}()

	var hs *full_node.HealthServer
	if cfg.HEALTH_ADDR != "" {
		lis, err := net.Listen("tcp", cfg.HEALTH_ADDR)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}
		hs = full_node.NewHealthServer(node)
		go func() {
			if err := hs.Serve(lis); err != nil {
				log.Println("health server failed:", err)
			}
		}()
	}

	go HandleCommand(cmd, node, requestQuit)

	<-quit
	log.Println("Shutting down")

	if hs != nil {
		hs.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.SHUTDOWN_TIMEOUT_SECONDS)*time.Second)
	if err := server.Shutdown(ctx); err != nil {
		log.Println("http shutdown:", err)
	}
	cancel()
	// Whatever is still mining gives up now.
	cancelMining()

	if g != nil {
		g.Close()
		setLogOutput(os.Stderr, file)
	}

	valid, err := node.Validate()
	if err != nil {
		log.Fatal(err)
	}
	log.Println("Is blockchain valid?", valid)
	if err := node.Save(cfg.SNAPSHOT_PATH); err != nil {
		log.Fatal("failed to save ledger: ", err)
	}
	log.Println("Saved ledger to", cfg.SNAPSHOT_PATH)
}
