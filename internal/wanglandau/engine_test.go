package wanglandau_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/SpeckFleck/mocasinns/internal/histogram"
	"github.com/SpeckFleck/mocasinns/internal/mc"
	"github.com/SpeckFleck/mocasinns/internal/metrics"
	"github.com/SpeckFleck/mocasinns/internal/models"
	"github.com/SpeckFleck/mocasinns/internal/rng"
	"github.com/SpeckFleck/mocasinns/internal/wanglandau"
)

// frozen never proposes an executable step.
type frozen struct{ energy int }

func (f *frozen) SystemSize() int { return 1 }
func (f *frozen) Energy() int     { return f.energy }
func (f *frozen) ProposeStep(mc.RandomSource) mc.Step[int] {
	return nullStep{}
}

type nullStep struct{}

func (nullStep) Executable() bool                    { return false }
func (nullStep) DeltaE() int                         { return 0 }
func (nullStep) SelectionProbabilityFactor() float64 { return 1 }
func (nullStep) Execute()                            { panic("null step executed") }

var _ = Describe("Parameters", func() {
	DescribeTable("rejects out-of-range values",
		func(mutate func(*wanglandau.Parameters)) {
			p := wanglandau.DefaultParameters()
			mutate(&p)
			Expect(p.Validate()).To(MatchError(mc.ErrParameterBounds))
		},
		Entry("zero initial factor", func(p *wanglandau.Parameters) { p.ModificationFactorInitial = 0 }),
		Entry("negative final factor", func(p *wanglandau.Parameters) { p.ModificationFactorFinal = -1 }),
		Entry("multiplier of one", func(p *wanglandau.Parameters) { p.ModificationFactorMultiplier = 1 }),
		Entry("zero multiplier", func(p *wanglandau.Parameters) { p.ModificationFactorMultiplier = 0 }),
		Entry("flatness above one", func(p *wanglandau.Parameters) { p.Flatness = 1.1 }),
		Entry("NaN flatness", func(p *wanglandau.Parameters) { p.Flatness = math.NaN() }),
		Entry("negative sweep", func(p *wanglandau.Parameters) { p.SweepSteps = -1 }),
		Entry("negative step cap", func(p *wanglandau.Parameters) { p.MaxSteps = -1 }),
	)

	It("counts the epochs to convergence", func() {
		p := wanglandau.Parameters{ModificationFactorInitial: 1, ModificationFactorFinal: 1e-6, ModificationFactorMultiplier: 0.9, Flatness: 0.8}
		Expect(p.Validate()).To(Succeed())
		Expect(p.Epochs()).To(Equal(132))
	})
})

var _ = Describe("State", func() {
	It("round-trips through its name", func() {
		for _, s := range []wanglandau.State{wanglandau.Sampling, wanglandau.FlatnessCheck, wanglandau.Refine, wanglandau.Converged} {
			parsed, err := wanglandau.ParseState(s.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(s))
		}
		_, err := wanglandau.ParseState("warming_up")
		Expect(err).To(MatchError(wanglandau.ErrCheckpoint))
		Expect(wanglandau.State(9).String()).To(Equal("State(9)"))
	})
})

var _ = Describe("Engine", func() {
	params := wanglandau.Parameters{
		ModificationFactorInitial:    1,
		ModificationFactorFinal:      1e-6,
		ModificationFactorMultiplier: 0.9,
		Flatness:                     0.8,
	}

	Describe("Step", func() {
		It("adds the modification factor and a visit after every move", func() {
			e, err := wanglandau.New[int](params, models.NewIsing([]int{4, 4}, 1), rng.NewMT19937(1), nil)
			Expect(err).NotTo(HaveOccurred())

			e.DoSteps(500)
			Expect(e.Steps()).To(Equal(int64(500)))
			Expect(e.DensityOfStates().Sum()).To(Equal(500.0))
			Expect(e.Visits().Sum()).To(Equal(int64(500)))
			Expect(e.State()).To(Equal(wanglandau.Sampling))
		})

		It("counts a non-executable proposal as a visit at the current energy", func() {
			e, _ := wanglandau.New[int](params, &frozen{energy: 3}, rng.NewMT19937(1), nil)

			e.DoSteps(10)
			Expect(e.Visits().Get(3)).To(Equal(int64(10)))
			Expect(e.DensityOfStates().Get(3)).To(Equal(10.0))
			Expect(e.Energy()).To(Equal(3))
		})

		It("never decreases the estimate within an epoch", func() {
			lattice := models.NewIsing([]int{8}, 1)
			e, _ := wanglandau.New[int](params, lattice, rng.NewMT19937(2), nil)

			prev := e.DensityOfStates()
			for i := 0; i < 300; i++ {
				e.Step()
				cur := e.DensityOfStates()
				for k, v := range prev.All() {
					Expect(cur.Get(k)).To(BeNumerically(">=", v))
				}
				prev = cur
			}
			Expect(e.Energy()).To(Equal(lattice.Energy()))
		})

		It("bins energies with the given binning", func() {
			b, err := histogram.NewFixed(8, 0)
			Expect(err).NotTo(HaveOccurred())
			e, _ := wanglandau.New[int](params, models.NewIsing([]int{4, 4}, 1), rng.NewMT19937(3), b)

			e.DoSteps(1000)
			for k := range e.DensityOfStates().All() {
				Expect(k % 8).To(BeZero())
			}
		})
	})

	Describe("CheckFlatness", func() {
		It("does not refine an empty epoch", func() {
			e, _ := wanglandau.New[int](params, &frozen{}, rng.NewMT19937(1), nil)
			Expect(e.CheckFlatness()).To(BeFalse())
			Expect(e.Epoch()).To(BeZero())
		})

		It("refines a flat epoch without touching the estimate", func() {
			epochs := 0
			e, _ := wanglandau.New[int](params, &frozen{}, rng.NewMT19937(1), nil,
				wanglandau.WithEpochHook(func() { epochs++ }))

			e.DoSteps(5)
			before := e.DensityOfStates()

			Expect(e.CheckFlatness()).To(BeTrue())
			Expect(e.Flatness()).To(Equal(1.0))
			Expect(e.DensityOfStates().Equal(before)).To(BeTrue())
			Expect(e.Visits().Len()).To(BeZero())
			Expect(e.ModificationFactor()).To(Equal(0.9))
			Expect(e.Epoch()).To(Equal(1))
			Expect(epochs).To(Equal(1))
			Expect(e.State()).To(Equal(wanglandau.Sampling))
		})

		It("keeps sampling while the visits are uneven", func() {
			p := params
			p.Flatness = 1
			e, _ := wanglandau.New[int](p, models.NewIsing([]int{4, 4}, 1), rng.NewMT19937(4), nil)

			// 23 visits cannot spread evenly over the 2 to 15 reachable bins.
			e.DoSteps(23)
			Expect(e.CheckFlatness()).To(BeFalse())
			Expect(e.Flatness()).To(BeNumerically("<", 1))
			Expect(e.Visits().Sum()).To(Equal(int64(23)))
			Expect(e.ModificationFactor()).To(Equal(1.0))
			Expect(e.State()).To(Equal(wanglandau.Sampling))
		})

		It("converges once the factor drops below its final value", func() {
			p := params
			p.ModificationFactorFinal = 0.5
			p.ModificationFactorMultiplier = 0.6

			var states []wanglandau.State
			var e *wanglandau.Engine[int]
			e, _ = wanglandau.New[int](p, &frozen{}, rng.NewMT19937(1), nil,
				wanglandau.WithEpochHook(func() { states = append(states, e.State()) }))

			e.DoSteps(3)
			e.CheckFlatness()
			e.DoSteps(3)
			e.CheckFlatness()

			Expect(states).To(Equal([]wanglandau.State{wanglandau.Sampling, wanglandau.Converged}))
			Expect(e.Converged()).To(BeTrue())

			e.DoSteps(10)
			Expect(e.Steps()).To(Equal(int64(6)))
			Expect(e.CheckFlatness()).To(BeFalse())
		})
	})

	Describe("Run", func() {
		It("recovers the degeneracy ratio of a two-level system", func() {
			p := params
			p.SweepSteps = 1000
			e, _ := wanglandau.New[int](p, models.NewTwoLevel(3), rng.NewMT19937(5), nil)

			Expect(e.Run(context.Background())).To(Succeed())
			Expect(e.Converged()).To(BeTrue())
			Expect(e.Epoch()).To(Equal(p.Epochs()))
			Expect(ratio(e.DensityOfStates(), 0, 1)).To(BeNumerically("~", 3, 0.15))
		})

		It("reproduces the exact density of states of an Ising chain", func() {
			p := params
			p.ModificationFactorFinal = 1e-5
			p.SweepSteps = 1000
			e, _ := wanglandau.New[int](p, models.NewIsing([]int{8}, 1), rng.NewMT19937(6), nil)

			Expect(e.Run(context.Background())).To(Succeed())
			dos := e.DensityOfStates()
			Expect(dos.Keys()).To(Equal([]int{-8, -4, 0, 4, 8}))

			// g = 2, 56, 140, 56, 2
			Expect(lnRatio(dos, -4, -8)).To(BeNumerically("~", math.Log(28), 0.15))
			Expect(lnRatio(dos, 0, -8)).To(BeNumerically("~", math.Log(70), 0.15))
			Expect(lnRatio(dos, 4, -4)).To(BeNumerically("~", 0, 0.15))
			Expect(lnRatio(dos, 8, -8)).To(BeNumerically("~", 0, 0.15))
		})

		It("returns early on cancellation and can be resumed", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			p := params
			p.SweepSteps = 200
			e, _ := wanglandau.New[int](p, models.NewTwoLevel(2), rng.NewMT19937(7), nil)

			Expect(e.Run(ctx)).To(Succeed())
			Expect(e.Converged()).To(BeFalse())
			Expect(e.Steps()).To(Equal(int64(200)))

			Expect(e.Run(context.Background())).To(Succeed())
			Expect(e.Converged()).To(BeTrue())
		})

		It("stops at the step limit", func() {
			p := params
			p.Flatness = 1
			p.SweepSteps = 100
			p.MaxSteps = 550
			e, _ := wanglandau.New[int](p, models.NewIsing([]int{4, 4}, 1), rng.NewMT19937(8), nil)

			Expect(e.Run(context.Background())).To(MatchError(wanglandau.ErrStepLimit))
			Expect(e.Steps()).To(Equal(int64(550)))
			Expect(e.Converged()).To(BeFalse())
		})

		It("reports progress to the recorder", func() {
			rec := metrics.NewRecorder(prometheus.NewRegistry())
			p := params
			p.ModificationFactorFinal = 0.1
			p.SweepSteps = 500
			e, _ := wanglandau.New[int](p, models.NewTwoLevel(2), rng.NewMT19937(9), nil, wanglandau.WithRecorder(rec))

			Expect(e.Run(context.Background())).To(Succeed())

			steps := 0.0
			for _, o := range []string{metrics.OutcomeAccepted, metrics.OutcomeRejected, metrics.OutcomeNull} {
				steps += testutil.ToFloat64(rec.Steps.WithLabelValues(metrics.EngineWangLandau, o))
			}
			Expect(steps).To(Equal(float64(e.Steps())))
			Expect(testutil.ToFloat64(rec.Epochs)).To(Equal(float64(e.Epoch())))
			Expect(testutil.ToFloat64(rec.ModificationFactor)).To(Equal(e.ModificationFactor()))
		})
	})
})
