package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/flexprice/subscriptions/internal/api/dto"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/service"
)

// SeedPlans creates the plans listed in the JSON file at PLANS_FILE.
// Plans whose name already exists are skipped.
func SeedPlans() error {
	plansFile := os.Getenv("PLANS_FILE")
	if plansFile == "" {
		return fmt.Errorf("PLANS_FILE is required")
	}

	body, err := os.ReadFile(plansFile)
	if err != nil {
		return fmt.Errorf("failed to read plans file: %w", err)
	}

	var requests []dto.CreatePlanRequest
	if err := json.Unmarshal(body, &requests); err != nil {
		return fmt.Errorf("failed to parse plans file: %w", err)
	}

	env, err := newScriptEnv()
	if err != nil {
		return err
	}
	defer env.close()

	ctx := context.Background()
	planService := service.NewPlanService(env.params)

	var created, skipped int
	for i := range requests {
		p, err := planService.CreatePlan(ctx, &requests[i])
		if ierr.IsAlreadyExists(err) {
			env.log.Infow("plan already exists, skipping", "name", requests[i].Name)
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create plan %q: %w", requests[i].Name, err)
		}
		fmt.Printf("created plan %s (%s)\n", p.Name, p.ID)
		created++
	}

	fmt.Printf("plans created: %d, skipped: %d\n", created, skipped)
	return nil
}

// ListPlans prints the plan catalog
func ListPlans() error {
	env, err := newScriptEnv()
	if err != nil {
		return err
	}
	defer env.close()

	plans, err := service.NewPlanService(env.params).ListPlans(context.Background(), false)
	if err != nil {
		return err
	}

	for _, p := range plans {
		fmt.Printf("%-32s %-24s %10s %s %-8s active=%v\n",
			p.ID, p.Name, p.Price.StringFixed(2), p.Currency, p.BillingCycle, p.IsActive)
	}
	return nil
}
