package main

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"wave-portal-tui/config"
	"wave-portal-tui/wallet"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

// -------------------- MAIN --------------------

func main() {
	app := &cli.App{
		Name:  "wave-portal-tui",
		Usage: "wave at the WavePortal contract from your terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (.json or .toml)",
				Value:   defaultConfigPath(),
			},
			&cli.StringFlag{
				Name:    "rpc",
				Usage:   "read-only Ethereum RPC endpoint",
				EnvVars: []string{config.EnvRPCURL},
			},
			&cli.StringFlag{
				Name:    "keystore",
				Usage:   "go-ethereum keystore directory used as the wallet",
				EnvVars: []string{config.EnvKeystore},
			},
			&cli.BoolFlag{
				Name:  "log",
				Usage: "open the log panel on start",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wave-portal-tui.json"
	}
	return filepath.Join(home, ".wave-portal-tui.json")
}

func run(c *cli.Context) error {
	path := c.String("config")
	cfg := config.LoadOrCreate(path)
	cfg.ApplyEnv()
	if v := c.String("rpc"); v != "" {
		cfg.RPCURL = v
	}
	if v := c.String("keystore"); v != "" {
		cfg.Wallet.KeystoreDir = v
	}
	if c.Bool("log") {
		cfg.Logger = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	// The model does not exist yet when the keystore is built; late-bind its hook
	var onAuthorize func([]common.Address)

	var (
		ks       *wallet.Keystore
		provider wallet.Provider
	)
	if cfg.Wallet.KeystoreDir != "" {
		authorized := make([]common.Address, 0, len(cfg.Wallet.Authorized))
		for _, a := range cfg.Wallet.Authorized {
			authorized = append(authorized, common.HexToAddress(a))
		}
		var err error
		ks, err = wallet.NewKeystore(wallet.KeystoreConfig{
			Dir:        cfg.Wallet.KeystoreDir,
			Authorized: authorized,
			OnAuthorize: func(accounts []common.Address) {
				if onAuthorize != nil {
					onAuthorize(accounts)
				}
			},
			RequestTimeout: cfg.Limits.RequestTimeout(),
		})
		if err != nil {
			return err
		}
		defer ks.Close()
		provider = ks
	}

	session := wallet.NewManager(provider, big.NewInt(cfg.Contract.ChainID), nil)

	m := newModel(options{
		cfg:        cfg,
		configPath: path,
		keystore:   ks,
		session:    session,
	})
	onAuthorize = m.authorizedHook()
	if ks != nil {
		ks.SetPrompter(m.prompter())
	}

	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	m.teardown()
	return err
}
