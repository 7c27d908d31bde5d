package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/akeren/cv99x-waitlist/internal/log"
	"github.com/akeren/cv99x-waitlist/pkg/utils"
	"github.com/akeren/cv99x-waitlist/pkg/waitlistform"
)

// runJoin fills the waitlist form from flags and submits it. It returns the process exit code.
func runJoin(ctx context.Context, logger *log.Logger, args []string, out io.Writer) (int, error) {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	fs.SetOutput(out)

	endpoint := fs.String("endpoint", utils.GetEnvTrimmedOrDefault("WAITLIST_BASE_URL", "http://localhost:8080"), "base URL of the waitlist server")
	timeout := fs.Duration("timeout", 15*time.Second, "request timeout")

	values := map[string]*string{
		"name":         fs.String("name", "", "full name (required)"),
		"email":        fs.String("email", "", "email address (required)"),
		"frustration":  fs.String("frustration", "", "biggest frustration with job applications"),
		"dream":        fs.String("dream", "", "one thing you want guaranteed"),
		"priceRange":   fs.String("price-range", "", "lt_0_50, 0_50_0_99 or gt_2"),
		"paymentStyle": fs.String("payment-style", "", "per_job or bundle_5"),
		"heardFrom":    fs.String("notes", "", "anything else"),
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, nil
		}
		return 2, err
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	form := waitlistform.NewController(waitlistform.Config{
		Definition: waitlistform.DefaultDefinition(),
		BaseURL:    *endpoint,
		Logger:     logger,
	})

	for key, value := range values {
		if err := form.UpdateField(key, *value); err != nil {
			return 2, err
		}
	}

	state := form.Submit(ctx)
	if state.ErrorMessage != "" {
		fmt.Fprintln(out, state.ErrorMessage)
		return 1, nil
	}

	fmt.Fprintln(out, state.SuccessMessage)
	return 0, nil
}
