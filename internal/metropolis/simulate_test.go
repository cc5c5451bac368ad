package metropolis_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SpeckFleck/mocasinns/internal/histogram"
	"github.com/SpeckFleck/mocasinns/internal/mc"
	"github.com/SpeckFleck/mocasinns/internal/metropolis"
	"github.com/SpeckFleck/mocasinns/internal/models"
	"github.com/SpeckFleck/mocasinns/internal/rng"
)

var _ = Describe("Simulate", func() {
	var (
		params  metropolis.Parameters
		lattice *models.Ising
	)

	BeforeEach(func() {
		params = metropolis.Parameters{RelaxationSteps: 50, MeasurementNumber: 20, StepsBetweenMeasurement: 10}
		lattice = models.NewIsing([]int{4, 4}, 1)
	})

	It("takes one sample per measurement and calls the hook before each", func() {
		hooks := 0
		var seen []int
		e, _ := metropolis.New[int](params, lattice, rng.NewMT19937(1),
			metropolis.WithMeasurementHook(func() { hooks++ }))

		samples := metropolis.Simulate(context.Background(), e, 0.4, func(c mc.Configuration[int]) int {
			seen = append(seen, hooks)
			return c.Energy()
		})

		Expect(samples).To(HaveLen(20))
		Expect(hooks).To(Equal(20))
		Expect(seen[0]).To(Equal(1))
		Expect(seen[19]).To(Equal(20))
		Expect(e.Stats().Total()).To(Equal(int64(50 + 20*10)))
	})

	It("returns partial samples when canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		n := 0
		e, _ := metropolis.New[int](params, lattice, rng.NewMT19937(2),
			metropolis.WithMeasurementHook(func() {
				n++
				if n == 5 {
					cancel()
				}
			}))

		samples := metropolis.Simulate(ctx, e, 0.4, models.EnergyPerSite)
		Expect(samples).To(HaveLen(5))
	})

	It("does nothing when canceled before the start", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		e, _ := metropolis.New[int](params, lattice, rng.NewMT19937(3))
		Expect(metropolis.Simulate(ctx, e, 0.4, models.EnergyPerSite)).To(BeEmpty())
		Expect(e.Stats().Total()).To(BeZero())
	})

	It("feeds a histogram accumulator", func() {
		e, _ := metropolis.New[int](params, lattice, rng.NewMT19937(4))
		acc := metropolis.NewHistogramAccumulator[int](histogram.Identity[int]{})

		n := metropolis.SimulateInto(context.Background(), e, 0.2, models.TotalEnergy, acc)
		Expect(n).To(Equal(20))
		Expect(acc.Sum()).To(Equal(int64(20)))
		for k := range acc.All() {
			Expect(k%4).To(BeZero(), "2-D Ising energies are multiples of 4")
		}
	})

	It("is reproducible for a fixed seed", func() {
		run := func() []mc.Scalar {
			e, _ := metropolis.New[int](params, models.NewIsing([]int{4, 4}, 1), rng.NewMT19937(42))
			return metropolis.Simulate(context.Background(), e, 0.4, models.EnergyPerSite)
		}
		Expect(run()).To(Equal(run()))
	})
})

var _ = Describe("SimulateTemperatures", func() {
	params := metropolis.Parameters{RelaxationSteps: 10, MeasurementNumber: 8, StepsBetweenMeasurement: 4}
	betas := []float64{0.1, 0.3, 0.5}

	It("returns one sample list per temperature", func() {
		e, _ := metropolis.New[int](params, models.NewIsing([]int{4}, 1), rng.NewMT19937(1))

		results := metropolis.SimulateTemperatures(context.Background(), e, betas, models.EnergyPerSite)
		Expect(results).To(HaveLen(3))
		for _, r := range results {
			Expect(r).To(HaveLen(8))
		}
	})

	It("skips the remaining temperatures after cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		n := 0
		e, _ := metropolis.New[int](params, models.NewIsing([]int{4}, 1), rng.NewMT19937(1),
			metropolis.WithMeasurementHook(func() {
				n++
				if n == 3 {
					cancel()
				}
			}))

		results := metropolis.SimulateTemperatures(ctx, e, betas, models.EnergyPerSite)
		Expect(results).To(HaveLen(1))
		Expect(results[0]).To(HaveLen(3))
	})

	It("pairs temperatures with accumulators", func() {
		e, _ := metropolis.New[int](params, models.NewIsing([]int{4}, 1), rng.NewMT19937(1))
		accs := []*counter{{}, {}, {}}

		Expect(metropolis.SimulateTemperaturesInto(context.Background(), e, betas, models.EnergyPerSite, accs)).To(Succeed())
		for _, a := range accs {
			Expect(a.n).To(Equal(8))
		}
	})

	It("rejects mismatched accumulators", func() {
		e, _ := metropolis.New[int](params, models.NewIsing([]int{4}, 1), rng.NewMT19937(1))
		accs := []*counter{{}}

		err := metropolis.SimulateTemperaturesInto(context.Background(), e, betas, models.EnergyPerSite, accs)
		Expect(err).To(MatchError(mc.ErrDimensionMismatch))
		Expect(accs[0].n).To(BeZero())
	})
})
