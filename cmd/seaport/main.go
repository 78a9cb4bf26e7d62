// Command seaport hashes, classifies and matches Seaport orders offline and
// reads order state from a node.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	seaport "github.com/kotard8899/seaport-sdk"
	"github.com/kotard8899/seaport-sdk/chain"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "seaport",
		Usage: "Seaport 1.1 order tool",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "", Usage: "toml config file", EnvVars: []string{"SEAPORT_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error", EnvVars: []string{"SEAPORT_LOG_LEVEL"}},
		},
		Before: func(c *cli.Context) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: seaport.ParseLogLevel(c.String("log-level")),
			}))
			slog.SetDefault(logger)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "hash",
				Usage: "compute the order hash and signing digest of order components",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "order components json"},
					&cli.Int64Flag{Name: "chain-id", Value: int64(seaport.ChainIDEthereumMainnet)},
					&cli.StringFlag{Name: "seaport", Value: seaport.SeaportV11Address},
				},
				Action: hashCmd,
			},
			{
				Name:  "classify",
				Usage: "show which fulfillment path an order takes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "order json"},
				},
				Action: classifyCmd,
			},
			{
				Name:  "match",
				Usage: "compute the fulfillments that match two orders",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "a", Required: true, Usage: "first order json"},
					&cli.StringFlag{Name: "b", Required: true, Usage: "second order json"},
				},
				Action: matchCmd,
			},
			{
				Name:  "status",
				Usage: "read the on-chain status of an order hash",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "hash", Required: true},
				},
				Action: statusCmd,
			},
			{
				Name:  "counter",
				Usage: "read the counter of an offerer",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "offerer", Required: true},
				},
				Action: counterCmd,
			},
		},
	}
}

func hashCmd(c *cli.Context) error {
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return err
	}
	components, err := seaport.DecodeOrderComponents(data)
	if err != nil {
		return err
	}

	orderHash, err := chain.HashOrderComponents(components)
	if err != nil {
		return err
	}
	domain := chain.NewEIP712Domain(big.NewInt(c.Int64("chain-id")), common.HexToAddress(c.String("seaport")))
	digest, err := chain.CreateOrderSignHash(domain, components)
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, map[string]string{
		"orderHash": orderHash.Hex(),
		"digest":    digest.Hex(),
	})
}

func classifyCmd(c *cli.Context) error {
	order, err := readOrder(c.String("file"))
	if err != nil {
		return err
	}
	cls := chain.ClassifyOrder(order, nil)
	out := map[string]interface{}{
		"strategy": cls.Strategy.String(),
		"advanced": cls.Advanced,
	}
	if cls.Strategy == chain.StrategyBasic {
		out["route"] = cls.Route.String()
	}
	return printJSON(c.App.Writer, out)
}

func matchCmd(c *cli.Context) error {
	orderA, err := readOrder(c.String("a"))
	if err != nil {
		return err
	}
	orderB, err := readOrder(c.String("b"))
	if err != nil {
		return err
	}
	pairs, err := chain.MatchComponents(orderA, orderB)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, chain.EncodeFulfillments(pairs))
}

func statusCmd(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	status, err := client.GetOrderStatus(c.Context, common.HexToHash(c.String("hash")))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, status)
}

func counterCmd(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	counter, err := client.GetCounter(c.Context, c.String("offerer"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, map[string]string{"counter": counter.String()})
}

func newClient(c *cli.Context) (*seaport.Client, error) {
	cfg, err := seaport.LoadClientConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc_url is not configured (set it in the config file or SEAPORT_RPC_URL)")
	}
	cfg.Logger = slog.Default()
	return seaport.NewClient(*cfg)
}

func readOrder(path string) (*chain.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return seaport.DecodeOrder(data)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
