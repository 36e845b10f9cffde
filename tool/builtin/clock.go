package builtin

import (
	"context"
	"time"

	"github.com/ericmichael/llm-deployment/tool"
)

const (
	dateLayout = "January 02, 2006"
	timeLayout = "01/02/2006 3:04 PM"
)

func todaysDate(opts Options) tool.Tool {
	return tool.NewFunctionTool(
		"get_todays_date",
		"Get today's date.",
		nil,
		func(_ context.Context, args []string) (any, error) {
			if err := tool.RequireArgs("get_todays_date", args); err != nil {
				return nil, err
			}

			return opts.Now().Format(dateLayout), nil
		},
	)
}

func tomorrowsDate(opts Options) tool.Tool {
	return tool.NewFunctionTool(
		"get_tomorrows_date",
		"Get tomorrow's date.",
		nil,
		func(_ context.Context, args []string) (any, error) {
			if err := tool.RequireArgs("get_tomorrows_date", args); err != nil {
				return nil, err
			}

			return opts.Now().AddDate(0, 0, 1).Format(dateLayout), nil
		},
	)
}

func currentTime(opts Options) tool.Tool {
	return tool.NewFunctionTool(
		"get_current_time",
		"Get the current date and time.",
		nil,
		func(_ context.Context, args []string) (any, error) {
			if err := tool.RequireArgs("get_current_time", args); err != nil {
				return nil, err
			}

			return CurrentTime(opts.Now), nil
		},
	)
}

// CurrentTime renders now() the way the clock tool does, e.g.
// "11/01/2023 2:15 PM". The system prompt uses it as well.
func CurrentTime(now func() time.Time) string {
	return now().Format(timeLayout)
}
