package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nmgenxys/starcalc/internal/adapters/loader"
	service "github.com/nmgenxys/starcalc/internal/app"
	"github.com/nmgenxys/starcalc/internal/config"
	"github.com/nmgenxys/starcalc/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const integrationPartC = `{
  "C14": {"thresholds": [0.5, 0.6, 0.7, 0.8, 0.9]},
  "C30": {"thresholds": [0.5, 0.4, 0.3, 0.2, 0.1], "reverse": true}
}`

const integrationPartD = `
D08:
  thresholds:
    MA-PD: [0.8, 0.84, 0.87, 0.89, 0.91]
    PDP: [0.82, 0.86, 0.88, 0.9, 0.92]
`

func writeData(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service configured from data files", t, func() {
		dir := t.TempDir()
		cfg := config.New()
		cfg.PartCThresholds = writeData(t, dir, "rules/part_c.json", integrationPartC)
		cfg.PartDThresholds = writeData(t, dir, "rules/part_d.yaml", integrationPartD)
		writeData(t, dir, "contracts/east/h1.json", `{
  "H1000": {"contract_name": "East Plan", "measures": {
    "C14: Medication Reconciliation Post-Discharge": 0.82,
    "C30: Members Choosing to Leave the Plan": 0.12,
    "D08: Medication Adherence for Diabetes Medications": 0.88
  }}
}`)
		writeData(t, dir, "contracts/west/h2.yaml", `
H2000:
  contract_name: West Plan
  measures:
    "C14: Medication Reconciliation Post-Discharge": "N/A"
    "D08: Medication Adherence for Diabetes Medications": 0.93
`)
		cfg.ContractScores = filepath.Join(dir, "contracts", "**", "*.{json,yaml}")
		cfg.MeasuresOfInterest = []string{
			"C14: Medication Reconciliation Post-Discharge",
			"D08: Medication Adherence for Diabetes Medications",
		}
		cfg.Workers = 4

		svc := service.New(service.OptionsFromConfig(cfg)...)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then contracts from every matched file are loaded", func() {
				So(err, ShouldBeNil)
				refs, err := svc.Contracts(ctx, "")
				So(err, ShouldBeNil)
				So(refs, ShouldResemble, []model.ContractRef{
					{ID: "H1000", Name: "East Plan"},
					{ID: "H2000", Name: "West Plan"},
				})
			})

			Convey("And contract reports use the loaded rules", func() {
				rep, err := svc.Contract(ctx, "H1000", "")
				So(err, ShouldBeNil)
				// C14 0.82 -> 4, C30 0.12 reversed -> 4, D08 0.88 MA-PD -> 3
				So(rep.Summary.PartC.String(), ShouldEqual, "4.00")
				So(rep.Summary.PartD.String(), ShouldEqual, "3.00")
				So(rep.Summary.Overall.String(), ShouldEqual, "3.67")

				pdp, err := svc.Contract(ctx, "H1000", "PDP")
				So(err, ShouldBeNil)
				So(pdp.Summary.PartD.String(), ShouldEqual, "3.00")
			})

			Convey("And the leaderboard ranks contracts by overall average", func() {
				top, err := svc.Leaderboard(ctx, 5, "")
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].ContractID, ShouldEqual, "H2000")
				So(top[0].Summary.Overall.String(), ShouldEqual, "5.00")
			})

			Convey("And a batch simulation covers every contract", func() {
				rep, err := svc.Simulate(ctx, "")
				So(err, ShouldBeNil)
				So(rep.Results, ShouldHaveLength, 2)
				So(rep.Measures, ShouldHaveLength, 2)

				east := rep.Results[0].Projection
				// C14 0.87 -> 4, D08 0.93 -> 5
				So(east.Projected.PartD.String(), ShouldEqual, "5.00")
				So(east.Delta.Overall.String(), ShouldEqual, "0.66")
			})
		})

		Convey("When a rule file is malformed", func() {
			writeData(t, dir, "rules/part_c.json", `{"C14": {"thresholds": [1, 2]}}`)
			err := svc.Start(ctx)

			Convey("Then Start fails with the loader error", func() {
				So(errors.Is(err, loader.ErrInvalidRules), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When the contract glob matches nothing", func() {
			cfg.ContractScores = filepath.Join(dir, "missing", "*.json")
			svc := service.New(service.OptionsFromConfig(cfg)...)
			err := svc.Start(ctx)
			So(errors.Is(err, loader.ErrNoSources), ShouldBeTrue)
		})
	})
}
