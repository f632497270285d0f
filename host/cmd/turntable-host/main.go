package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/shlex"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"turntable/config"
	"turntable/host/link"
	"turntable/host/serial"
)

var (
	device     = flag.String("device", config.DefaultDevice, "Serial device path")
	baud       = flag.Int("baud", config.DefaultBaud, "Baud rate")
	configPath = flag.String("config", "", "Optional YAML config (overrides -device and -baud)")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
)

const (
	commandTimeout = 2 * time.Second
	moveTimeout    = 5 * time.Minute
)

func main() {
	flag.Parse()

	fmt.Println("Turntable Host - interactive console")
	fmt.Println("====================================")
	fmt.Println()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	portCfg := serial.DefaultConfig(*device)
	portCfg.Baud = *baud
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		portCfg = serial.FromConfig(cfg.Serial)
	}

	fmt.Printf("Connecting to turntable on %s...\n", portCfg.Device)
	port, err := serial.Open(portCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}

	client := link.NewClient(port, clock.New(), logger)
	defer client.Close()

	fmt.Println("Connected. Type 'help' for available commands, 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		parts, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if len(parts) == 0 {
			continue
		}

		if parts[0] == "quit" || parts[0] == "exit" || parts[0] == "q" {
			fmt.Println("Goodbye!")
			return
		}

		if err := run(client, parts[0], parts[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if err := client.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Link: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return logger.Sugar(), nil
}

func run(client *link.Client, cmd string, args []string) error {
	timeout := commandTimeout
	if cmd == "wait" || cmd == "home" {
		timeout = moveTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch cmd {
	case "help", "?":
		printHelp()
		return nil

	case "init":
		return client.Initialize(ctx)

	case "reset":
		return client.Reset(ctx)

	case "velocity", "v":
		if len(args) != 1 {
			return errors.New("usage: velocity <rpm>")
		}
		rpm, err := strconv.ParseFloat(args[0], 32)
		if err != nil {
			return errors.Wrap(err, "invalid rpm")
		}
		return client.Velocity(ctx, float32(rpm))

	case "move", "m":
		if len(args) < 1 || len(args) > 2 {
			return errors.New("usage: move <position> [rpm]")
		}
		pos, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return errors.Wrap(err, "invalid position")
		}
		var rpm float64
		if len(args) == 2 {
			if rpm, err = strconv.ParseFloat(args[1], 32); err != nil {
				return errors.Wrap(err, "invalid rpm")
			}
		}
		return client.MoveTo(ctx, int32(pos), float32(rpm))

	case "home":
		if err := client.MoveTo(ctx, 0, 0); err != nil {
			return err
		}
		return client.WaitPositionReached(ctx)

	case "wait":
		if err := client.WaitPositionReached(ctx); err != nil {
			return err
		}
		fmt.Println("Position reached")
		return nil

	case "stop", "y":
		return client.StopAll(ctx)

	case "pos", "z":
		pos, err := client.Position(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Position: %d\n", pos)
		return nil
	}

	return errors.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  init                 - Start a session (expects heartbeat 0)")
	fmt.Println("  reset                - End the session and release the motor")
	fmt.Println("  velocity <rpm>       - Run towards the opposite travel limit")
	fmt.Println("  move <pos> [rpm]     - Move to an absolute position")
	fmt.Println("  wait                 - Wait for the last move to finish")
	fmt.Println("  home                 - Move to position 0 and wait")
	fmt.Println("  stop                 - Stop immediately")
	fmt.Println("  pos                  - Print the current position")
	fmt.Println("  quit/exit/q          - Exit the program")
	fmt.Println()
}
