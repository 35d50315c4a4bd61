// Command usertool provisions user accounts from the command line. It reads
// the password interactively so it never appears in shell history or process
// listings.
//
// Usage:
//
//	usertool -user admin -tenant duo-previa [-role admin] [-email a@b.com]
//
// Connection settings come from the regular server configuration (defaults,
// environment, -config JSON file, server flags).
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/term"

	"github.com/cordoeats/backend/internal/common"
	"github.com/cordoeats/backend/internal/flagx"
	"github.com/cordoeats/backend/internal/logging"
	"github.com/cordoeats/backend/internal/server/auth"
	"github.com/cordoeats/backend/internal/server/config"
	"github.com/cordoeats/backend/internal/server/repositories/tenants"
	"github.com/cordoeats/backend/internal/server/repositories/users"
	"github.com/cordoeats/backend/internal/server/services"
	"github.com/cordoeats/backend/internal/server/tokenstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadConfig()

	// Filter args to include only the flags handled here, so the server
	// configuration flags pass through untouched.
	args := flagx.FilterArgs(os.Args[1:], []string{"-user", "-tenant", "-role", "-email"})

	fs := flag.NewFlagSet("usertool", flag.ContinueOnError)
	username := fs.String("user", "", "username to create")
	tenantSlug := fs.String("tenant", "", "tenant slug the user belongs to")
	role := fs.String("role", "", "user role (default admin)")
	email := fs.String("email", "", "user email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" || *tenantSlug == "" {
		return fmt.Errorf("both -user and -tenant are required")
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx := context.Background()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()
	db := client.Database(cfg.DatabaseName)

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	sessions := services.NewSessionService(
		users.NewMongoRepository(db),
		tenants.NewMongoRepository(db),
		tokenstore.NewMemoryStore(cfg.RefreshTokenValidityDuration),
		auth.NewHasher(0),
		auth.NewTokenCodec([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration),
		logger,
	)

	id, err := sessions.CreateUser(ctx, *username, string(password), *tenantSlug, *role, *email)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	fmt.Printf("created user %s (id %s)\n", *username, id)
	return nil
}

func promptPassword() ([]byte, error) {
	fmt.Println("Enter password")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}

	fmt.Println("Repeat password")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		common.WipeByteArray(password)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		common.WipeByteArray(password)
		return nil, fmt.Errorf("passwords do not match")
	}
	return password, nil
}
