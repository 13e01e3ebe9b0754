// Parafeur CLI - manage quotes, contracts and the notification center.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/parafeur/parafeur/internal/config"
	"github.com/parafeur/parafeur/internal/core"
	"github.com/parafeur/parafeur/internal/notifications"
	"github.com/parafeur/parafeur/internal/storage"
)

var (
	configPath string
	dataDir    string

	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "paraf",
		Short: "Parafeur - quote and contract signing",
		Long: `Parafeur manages the signing lifecycle of quotes and contracts.

Create a quote, send the minted signing link to your client, and the
daemon takes care of the rest: the client signs, the quote becomes a
contract, and a notification lands in your feed.`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides config)")

	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(notificationsCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDB loads config and opens the daemon's database
func openDB() (*storage.DB, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	if _, err := os.Stat(cfg.DatabasePath()); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("no database at %s, start parafeurd first", cfg.DatabasePath())
	}

	db, err := storage.Open(storage.Config{Path: cfg.DatabasePath()})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}

// quoteCmd creates quotes
func quoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote operations",
	}

	newCmd := &cobra.Command{
		Use:   "new [name]",
		Short: "Create a quote and mint its signing link",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			client, _ := cmd.Flags().GetString("client")
			total, _ := cmd.Flags().GetFloat64("total")

			if client == "" {
				return fmt.Errorf("--client is required, the quote id carries the client initials")
			}

			db, cfg, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			token := uuid.New().String()
			doc := &core.Document{
				ID:     core.QuoteID(client, time.Now()),
				Kind:   core.KindQuote,
				Name:   name,
				Total:  total,
				Status: core.StatusDraft,
			}
			doc.SetExtra(string(core.FieldTokenQuote), token)
			doc.SetExtra(core.ExtraClientName, client)

			store := storage.NewDocumentStore(db)
			if err := store.Insert(context.Background(), doc); err != nil {
				return fmt.Errorf("failed to create quote: %w", err)
			}

			fmt.Printf("Quote created: %s\n", doc.ID)
			fmt.Printf("Signing link:  http://%s:%d/api/v1/sign/%s\n",
				cfg.Server.Host, cfg.Server.Port, token)
			return nil
		},
	}
	newCmd.Flags().String("client", "", "Client name (required)")
	newCmd.Flags().Float64("total", 0, "Quote total")

	cmd.AddCommand(newCmd)
	return cmd
}

// listCmd lists documents in one collection
func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes or contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			kindFlag, _ := cmd.Flags().GetString("kind")
			limit, _ := cmd.Flags().GetInt("limit")

			kind := core.KindQuote
			if kindFlag == string(core.KindContract) {
				kind = core.KindContract
			} else if kindFlag != string(core.KindQuote) {
				return fmt.Errorf("kind must be devis or contrat")
			}

			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			docs, err := storage.NewDocumentStore(db).List(context.Background(), kind, limit)
			if err != nil {
				return err
			}

			if len(docs) == 0 {
				fmt.Printf("No %s yet.\n", kind)
				return nil
			}

			for _, d := range docs {
				fmt.Printf("%-22s %-10s %8.2f  %s\n", d.ID, d.Status, d.Total, d.Name)
			}
			return nil
		},
	}
	cmd.Flags().String("kind", "devis", "Collection: devis or contrat")
	cmd.Flags().Int("limit", 20, "Max results")
	return cmd
}

// showCmd prints one document in full
func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a document by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			store := storage.NewDocumentStore(db)
			ctx := context.Background()

			// The prefix says where to look first, but migrated and legacy
			// ids can sit in either collection.
			kind := core.KindFromID(id, core.KindQuote)
			doc, err := store.GetByID(ctx, kind, id)
			if err != nil {
				other := core.KindContract
				if kind == core.KindContract {
					other = core.KindQuote
				}
				doc, err = store.GetByID(ctx, other, id)
			}
			if err != nil {
				return fmt.Errorf("document %s not found", id)
			}

			fmt.Printf("ID:      %s\n", doc.ID)
			fmt.Printf("Kind:    %s\n", doc.Kind)
			fmt.Printf("Name:    %s\n", doc.Name)
			fmt.Printf("Total:   %.2f\n", doc.Total)
			fmt.Printf("Status:  %s\n", doc.Status)
			fmt.Printf("Client:  %s\n", doc.ClientName())
			fmt.Printf("Created: %s\n", doc.CreatedAt.Format("2006-01-02 15:04"))
			if doc.IsSigned() {
				fmt.Printf("Signed:  %s\n", doc.ExtraString(core.ExtraSignedAt))
			}
			return nil
		},
	}
}

// notificationsCmd lists the notification feed
func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			unreadOnly, _ := cmd.Flags().GetBool("unread")
			limit, _ := cmd.Flags().GetInt("limit")

			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := notifications.NewService(db)
			filter := notifications.NotificationFilter{Limit: limit}
			if unreadOnly {
				f := false
				filter.Read = &f
				filter.Dismissed = &f
			}

			notifs, err := svc.List(context.Background(), filter)
			if err != nil {
				return err
			}

			if len(notifs) == 0 {
				fmt.Println("No notifications.")
				return nil
			}

			for _, n := range notifs {
				marker := " "
				if !n.Read {
					marker = "*"
				}
				fmt.Printf("%s %s  %s\n", marker, n.CreatedAt.Format("2006-01-02 15:04"), n.Message)
			}
			return nil
		},
	}
	cmd.Flags().Bool("unread", false, "Only unread notifications")
	cmd.Flags().Int("limit", 20, "Max results")
	return cmd
}

// versionCmd shows version
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show Parafeur version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Parafeur %s\n", version)
		},
	}
}
