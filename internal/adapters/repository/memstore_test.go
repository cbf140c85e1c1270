package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nmgenxys/starcalc/internal/adapters/repository"
	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/scoring"
	"github.com/nmgenxys/starcalc/internal/domain/thresholds"
	"github.com/nmgenxys/starcalc/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	c14 = model.MeasureCode("C14: Medication Reconciliation Post-Discharge")
	d08 = model.MeasureCode("D08: Medication Adherence for Diabetes Medications")
)

var ascending = thresholds.Cutoffs{0.5, 0.6, 0.7, 0.8, 0.9}

func fixtures() []model.Contract {
	return []model.Contract{
		{ID: "H4", Name: "Delta Care", Measures: model.Measures{d08: model.Numeric(0.85)}},
		{ID: "H0", Name: "New Plan", Measures: model.Measures{c14: model.NotApplicable("Plan too new to be measured")}},
		{ID: "H3", Name: "Gamma Health", Measures: model.Measures{c14: model.Numeric(0.75)}},
		{ID: "H1", Name: "Acme Health", Measures: model.Measures{c14: model.Numeric(0.9), d08: model.Numeric(0.9)}},
		{ID: "H2", Name: "Beta Health", Measures: model.Measures{c14: model.Numeric(0.75)}},
	}
}

func newStore() *repository.MemoryStore {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	engine := scoring.NewEngine(thresholds.New(
		map[string]thresholds.Rule{"C14": {Cutoffs: ascending}},
		map[string]thresholds.Rule{"D08": {PlanCutoffs: map[model.PlanType]thresholds.Cutoffs{
			model.PlanMAPD: ascending,
			model.PlanPDP:  {0.6, 0.7, 0.8, 0.9, 0.95},
		}}},
	))
	return repository.NewMemoryStore(fixtures(), engine)
}

func ids(entries []repository.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ContractID)
	}
	return out
}

func ranks(entries []repository.Entry) []int {
	out := make([]int, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Rank)
	}
	return out
}

func TestMemoryStore_Lookup(t *testing.T) {
	Convey("Given a store with five contracts", t, func() {
		ctx := context.Background()
		s := newStore()

		Convey("Then List is ordered by ID", func() {
			refs := s.List(ctx)
			So(refs, ShouldHaveLength, 5)
			So(refs[0], ShouldResemble, model.ContractRef{ID: "H0", Name: "New Plan"})
			So(refs[4].ID, ShouldEqual, "H4")
			So(s.Count(ctx), ShouldEqual, 5)
		})

		Convey("When getting a known contract", func() {
			c, err := s.Get(ctx, "H1")

			Convey("Then a copy is returned", func() {
				So(err, ShouldBeNil)
				So(c.Name, ShouldEqual, "Acme Health")
				c.Measures[c14] = model.Numeric(0.1)

				again, _ := s.Get(ctx, "H1")
				f, _ := again.Measures.Get(c14).Float()
				So(f, ShouldEqual, 0.9)
			})
		})

		Convey("When getting an unknown contract", func() {
			_, err := s.Get(ctx, "H9")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When searching by name", func() {
			So(s.FindByName(ctx, "health"), ShouldHaveLength, 3)
			So(s.FindByName(ctx, "  DELTA "), ShouldResemble, []model.ContractRef{{ID: "H4", Name: "Delta Care"}})
			So(s.FindByName(ctx, "nothing"), ShouldBeEmpty)
			So(s.FindByName(ctx, ""), ShouldHaveLength, 5)
		})
	})
}

func TestMemoryStore_TopN(t *testing.T) {
	Convey("Given a store with five contracts", t, func() {
		ctx := context.Background()
		s := newStore()

		Convey("When ranking for MA-PD", func() {
			top, err := s.TopN(ctx, 10, model.PlanMAPD)

			Convey("Then higher averages come first, ties by ID, not-rated last", func() {
				So(err, ShouldBeNil)
				So(ids(top), ShouldResemble, []string{"H1", "H4", "H2", "H3", "H0"})
				So(ranks(top), ShouldResemble, []int{1, 2, 3, 3, 4})
				So(top[0].Summary.Overall.String(), ShouldEqual, "5.00")
				So(top[4].Summary.Overall.IsApplicable(), ShouldBeFalse)
			})
		})

		Convey("When ranking for PDP", func() {
			top, err := s.TopN(ctx, 10, model.PlanPDP)

			Convey("Then Part D cutoffs follow the plan type", func() {
				So(err, ShouldBeNil)
				So(ids(top), ShouldResemble, []string{"H1", "H2", "H3", "H4", "H0"})
				So(ranks(top), ShouldResemble, []int{1, 2, 2, 2, 3})
				So(top[0].Summary.Overall.String(), ShouldEqual, "4.50")
			})
		})

		Convey("When no plan type is given", func() {
			def, err := s.TopN(ctx, 2, "")
			So(err, ShouldBeNil)
			mapd, _ := s.TopN(ctx, 2, model.PlanMAPD)
			So(def, ShouldResemble, mapd)
		})

		Convey("When the limit is smaller than the store", func() {
			top, err := s.TopN(ctx, 2, model.PlanMAPD)
			So(err, ShouldBeNil)
			So(ids(top), ShouldResemble, []string{"H1", "H4"})
		})

		Convey("When the limit is not positive", func() {
			_, err := s.TopN(ctx, 0, model.PlanMAPD)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("When the caller edits a returned slice", func() {
			top, _ := s.TopN(ctx, 1, model.PlanMAPD)
			top[0].ContractID = "changed"

			again, _ := s.TopN(ctx, 1, model.PlanMAPD)
			So(again[0].ContractID, ShouldEqual, "H1")
		})
	})
}

func TestMemoryStore_Rank(t *testing.T) {
	Convey("Given a store with five contracts", t, func() {
		ctx := context.Background()
		s := newStore()

		Convey("When ranking one contract", func() {
			e, err := s.Rank(ctx, "H4", model.PlanPDP)
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 2)
			So(e.Name, ShouldEqual, "Delta Care")
			So(e.Summary.PartD.String(), ShouldEqual, "3.00")
		})

		Convey("When the contract is unknown", func() {
			_, err := s.Rank(ctx, "H9", model.PlanMAPD)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When many readers rank at once", func() {
			var wg sync.WaitGroup
			results := make([]int, 16)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					e, _ := s.Rank(ctx, "H1", model.PlanMAPD)
					results[i] = e.Rank
				}(i)
			}
			wg.Wait()

			for _, r := range results {
				So(r, ShouldEqual, 1)
			}
		})
	})
}
