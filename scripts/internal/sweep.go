package internal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flexprice/subscriptions/internal/scheduler"
	"github.com/flexprice/subscriptions/internal/service"
)

// RunSweep runs one billing sweep immediately and prints the report
func RunSweep() error {
	env, err := newScriptEnv()
	if err != nil {
		return err
	}
	defer env.close()

	sched := scheduler.NewScheduler(env.cfg, service.NewSubscriptionService(env.params), env.log)

	resp, sweepErr := sched.RunOnce(context.Background())
	if resp != nil {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return sweepErr
}
