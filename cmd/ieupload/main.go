// main.go - Command-line script uploader for IntuitionHandheld

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionHandheld
License: GPLv3 or later
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/intuitionamiga/IntuitionHandheld/storage"
	"github.com/intuitionamiga/IntuitionHandheld/upload"
)

const stdinName = "stdin.lua"

type options struct {
	socket string
	name   string
	open   bool
}

// newRootCmd builds the client. stdinIsTTY reports whether stdin is an
// interactive terminal, in which case it is never read as a script.
func newRootCmd(stdin io.Reader, stdinIsTTY func() bool) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "ieupload [script.lua]",
		Short: "Send a Lua script to a running IntuitionHandheld",
		Long: `Uploads a script to the handheld over its local socket. With no file
argument the script is read from standard input:

  ieupload games/pong.lua
  cat pong.lua | ieupload --name pong.lua
  ieupload --open /home/me/games/pong.lua`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := send(opts, args, stdin, stdinIsTTY)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", resp.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.socket, "socket", "s", upload.DefaultSocketPath(), "handheld upload socket")
	f.StringVarP(&opts.name, "name", "n", "", "script name (default: file name)")
	f.BoolVar(&opts.open, "open", false, "ask the handheld to read the file itself")
	return cmd
}

func send(opts *options, args []string, stdin io.Reader, stdinIsTTY func() bool) (upload.Response, error) {
	if len(args) == 0 {
		if opts.open {
			return upload.Response{}, errors.New("--open needs a file argument")
		}
		if stdinIsTTY() {
			return upload.Response{}, errors.New("no script given: pass a file or pipe one to stdin")
		}
		body, err := io.ReadAll(io.LimitReader(stdin, storage.MaxScriptSize+1))
		if err != nil {
			return upload.Response{}, fmt.Errorf("read stdin: %w", err)
		}
		if len(body) > storage.MaxScriptSize {
			return upload.Response{}, fmt.Errorf("script exceeds %d bytes", storage.MaxScriptSize)
		}
		return upload.SendUpload(opts.socket, nameOr(opts.name, stdinName), string(body))
	}

	path := args[0]
	if opts.open {
		abs, err := filepath.Abs(path)
		if err != nil {
			return upload.Response{}, err
		}
		return upload.SendOpen(opts.socket, abs)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return upload.Response{}, err
	}
	return upload.SendUpload(opts.socket, nameOr(opts.name, filepath.Base(path)), string(body))
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func main() {
	isTTY := func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	if err := newRootCmd(os.Stdin, isTTY).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ieupload: %v\n", err)
		os.Exit(1)
	}
}
