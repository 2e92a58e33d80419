// Command tienda is a small console front for the client core: it restores
// or creates a session, prints the order list and optionally cancels or
// reorders a single order. It stands in for the mobile UI during backend
// development.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tienda.app/internal/api"
	"tienda.app/internal/config"
	"tienda.app/internal/obs"
	"tienda.app/internal/orders"
	"tienda.app/internal/secstore"
	"tienda.app/internal/session"
)

func main() {
	var (
		docType  = flag.String("doc-type", "dni", "document type")
		docNum   = flag.String("document", "", "document number used to sign in")
		password = flag.String("password", "", "account password")
		cancelID = flag.String("cancel", "", "cancel the order with this id")
		reorder  = flag.String("reorder", "", "reorder the order with this id")
		logout   = flag.Bool("logout", false, "sign out and clear the stored session")
	)
	flag.Parse()

	obs.Init()
	cfg := config.Load()

	key := sha256.Sum256([]byte(cfg.SecstoreKey))
	store, err := secstore.NewFile(cfg.SecstoreDir, key[:])
	if err != nil {
		log.Fatalf("open credential store: %v", err)
	}

	client, err := api.NewClient(cfg.APIBaseURL)
	if err != nil {
		log.Fatalf("api client: %v", err)
	}
	sessions := session.NewManager(store, api.NewAuthClient(client))

	// The orders client reads the bearer token from the session manager.
	authed, err := api.NewClient(cfg.APIBaseURL, api.WithTokenSource(sessions))
	if err != nil {
		log.Fatalf("api client: %v", err)
	}
	cache := orders.NewCache(api.NewOrdersClient(authed), sessions)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessions.Restore(ctx)

	if *logout {
		sessions.Logout(ctx)
		fmt.Println("sesión cerrada")
		return
	}

	if !sessions.Authenticated() {
		if *docNum == "" || *password == "" {
			fmt.Fprintln(os.Stderr, "no hay sesión guardada: usa -document y -password")
			os.Exit(1)
		}
		snap, err := sessions.Login(ctx, *docType, *docNum, *password)
		if err != nil {
			fmt.Fprintln(os.Stderr, snap.LastError)
			os.Exit(1)
		}
	}

	user := sessions.Snapshot().User
	fmt.Printf("hola, %s %s\n\n", user.FirstName, user.LastName)

	if err := cache.FetchAll(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cache.LastError())
		os.Exit(1)
	}
	printList(cache.Orders())

	if *cancelID != "" {
		if err := cache.Cancel(ctx, *cancelID); err != nil {
			fmt.Fprintln(os.Stderr, cache.LastError())
			os.Exit(1)
		}
		fmt.Printf("\npedido %s cancelado\n", *cancelID)
		printList(cache.Orders())
	}

	if *reorder != "" {
		res, err := cache.Reorder(ctx, *reorder)
		if err != nil {
			fmt.Fprintln(os.Stderr, cache.LastError())
			os.Exit(1)
		}
		fmt.Printf("\n%s\n", res.Message)
	}
}

func printList(list []orders.Order) {
	if len(list) == 0 {
		fmt.Println("no tienes compras todavía")
		return
	}
	for _, o := range list {
		fmt.Printf("%-8s %-12s %-10s %10.2f  %s\n",
			o.ID, o.OrderNumber, o.Status, o.Total, o.Date.Format("2006-01-02"))
	}
}
