// Command infraql is a thin demonstration shell around the Engine
// facade: register the mock source, run a handful of queries, print
// the results.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	infraql "github.com/infraql/infraql"
	"github.com/infraql/infraql/internal/mock"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Error("infraql: fatal")
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	engine := infraql.NewDefaultEngine()

	if err := engine.RegisterSource(ctx, mock.New(), nil); err != nil {
		return fmt.Errorf("registering mock source: %w", err)
	}

	queries := []string{
		"SELECT * FROM services WHERE environment = 'production' ORDER BY name",
		"SELECT status, COUNT(*) AS total FROM services GROUP BY status",
		"DESCRIBE services",
		"SHOW TABLES",
		"TRACE service_id = 'svc-1'",
		"CACHE SHOW",
	}

	for _, q := range queries {
		fmt.Printf("--- %s\n", q)
		result, err := engine.Query(ctx, q)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Println(string(out))
	}

	return nil
}
