// Example usage of the Seaport SDK
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	seaport "github.com/kotard8899/seaport-sdk"
	"github.com/kotard8899/seaport-sdk/chain"
)

func main() {
	// Initialize the SDK client
	config := seaport.ClientConfig{
		ChainID:    seaport.ChainIDSepolia,
		RPCURL:     os.Getenv("SEAPORT_RPC_URL"),     // Replace with actual RPC URL
		PrivateKey: os.Getenv("SEAPORT_PRIVATE_KEY"), // Replace with actual private key
	}

	client, err := seaport.NewClient(config)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	nftContract := "0x0000000000000000000000000000000000000721"
	weth := client.Addresses().WrappedNative

	// List token #42 for 0.1 WETH with a 2.5% fee leg
	price, err := client.ParseTokenAmount(ctx, common.HexToAddress(weth), "0.0975")
	if err != nil {
		log.Fatalf("Failed to parse price: %v", err)
	}
	fee, err := client.ParseTokenAmount(ctx, common.HexToAddress(weth), "0.0025")
	if err != nil {
		log.Fatalf("Failed to parse fee: %v", err)
	}

	fmt.Println("Creating order...")
	created, err := client.CreateOrder(ctx, seaport.CreateOrderInput{
		Offer: []seaport.ItemData{
			{ItemType: chain.ItemTypeERC721, Token: nftContract, Identifier: big.NewInt(42)},
		},
		Consideration: []seaport.ItemData{
			{ItemType: chain.ItemTypeERC20, Token: weth, StartAmount: price},
			{ItemType: chain.ItemTypeERC20, Token: weth, StartAmount: fee, Recipient: "0x0000000000000000000000000000000000000fee"},
		},
		OrderType:  chain.OrderTypeFullOpen,
		ConduitKey: common.HexToHash(seaport.OpenSeaConduitKey),
	}, true)
	if err != nil {
		log.Fatalf("Failed to create order: %v", err)
	}
	fmt.Printf("Order hash: %s\n", created.OrderHash.Hex())

	cls := chain.ClassifyOrder(&created.Order, nil)
	fmt.Printf("Fulfillment path: %s %s\n", cls.Strategy, cls.Route)

	// Example: Get order status
	status, err := client.GetOrderStatus(ctx, created.OrderHash)
	if err != nil {
		log.Printf("Failed to get order status: %v", err)
	} else {
		fmt.Printf("Status: %+v\n", status)
	}

	// Example: Cancel the order
	fmt.Println("\nCancelling order...")
	result, err := client.CancelOrders(ctx, []seaport.OrderComponents{created.Components})
	if err != nil {
		log.Printf("Failed to cancel order: %v", err)
	} else {
		fmt.Printf("Cancel tx: %s\n", result.TxHash)
	}
}
