package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"StudentDrop/internal/domain/models"
	"StudentDrop/internal/services/mlclient"
	"StudentDrop/internal/services/scoring"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "riskctl:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	urlFlag := &cli.StringFlag{
		Name:    "url",
		Usage:   "base URL of the risk service",
		Value:   "http://localhost:8000",
		EnvVars: []string{"RISKCTL_URL"},
	}
	timeoutFlag := &cli.DurationFlag{
		Name:  "timeout",
		Usage: "per-request timeout",
		Value: 5 * time.Second,
	}
	retriesFlag := &cli.IntFlag{
		Name:  "retries",
		Usage: "attempts for transport failures and 5xx",
		Value: 3,
	}

	client := func(c *cli.Context) (*mlclient.Client, error) {
		return mlclient.New(c.String("url"), c.Duration("timeout"), mlclient.WithRetries(c.Int("retries")))
	}

	return &cli.App{
		Name:      "riskctl",
		Usage:     "score students locally or query a running risk service",
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			{
				Name:      "score",
				Usage:     "score student ids locally, no network",
				ArgsUsage: "<id>...",
				Action: func(c *cli.Context) error {
					ids, err := parseIDs(c.Args().Slice())
					if err != nil {
						return err
					}
					s := scoring.NewLCGScorer()
					for _, id := range ids {
						printPrediction(out, id, s.Score(id))
					}
					return nil
				},
			},
			{
				Name:      "predict",
				Usage:     "ask the service to score student ids",
				ArgsUsage: "<id>...",
				Flags:     []cli.Flag{urlFlag, timeoutFlag, retriesFlag, &cli.BoolFlag{Name: "stream", Usage: "use one websocket for all ids"}},
				Action: func(c *cli.Context) error {
					ids, err := parseIDs(c.Args().Slice())
					if err != nil {
						return err
					}
					mc, err := client(c)
					if err != nil {
						return err
					}
					if c.Bool("stream") {
						preds, err := mc.PredictStream(c.Context, ids)
						for i, p := range preds {
							printPrediction(out, ids[i], p)
						}
						return err
					}
					for _, id := range ids {
						p, err := mc.Predict(c.Context, id)
						if err != nil {
							return err
						}
						printPrediction(out, id, p)
					}
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "show service health and model status",
				Flags: []cli.Flag{urlFlag, timeoutFlag, retriesFlag},
				Action: func(c *cli.Context) error {
					mc, err := client(c)
					if err != nil {
						return err
					}
					h, err := mc.Health(c.Context)
					if err != nil {
						return err
					}
					st, err := mc.Status(c.Context)
					if err != nil {
						return err
					}
					trained := "never"
					if st.LastTrained != nil {
						trained = st.LastTrained.Format(time.RFC3339)
					}
					fmt.Fprintf(out, "health=%s accuracy=%.2f last_trained=%s\n", h.Status, st.Accuracy, trained)
					return nil
				},
			},
			{
				Name:  "train",
				Usage: "trigger a (simulated) training run",
				Flags: []cli.Flag{urlFlag, timeoutFlag, &cli.IntFlag{Name: "retries", Value: 1}},
				Action: func(c *cli.Context) error {
					mc, err := client(c)
					if err != nil {
						return err
					}
					res, err := mc.Train(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s accuracy=%.2f\n", res.Message, res.Accuracy)
					return nil
				},
			},
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one student id is required")
	}
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid student id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printPrediction(out io.Writer, id int64, p models.Prediction) {
	fmt.Fprintf(out, "%d\t%.2f\t%s\n", id, p.RiskPercent, p.Category)
}
