package metropolis_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/SpeckFleck/mocasinns/internal/mc"
	"github.com/SpeckFleck/mocasinns/internal/metrics"
	"github.com/SpeckFleck/mocasinns/internal/metropolis"
	"github.com/SpeckFleck/mocasinns/internal/models"
	"github.com/SpeckFleck/mocasinns/internal/rng"
)

var _ = Describe("Accept", func() {
	DescribeTable("with a symmetric proposal equals min(1, exp(-x))",
		func(x, u float64) {
			want := u < math.Min(1, math.Exp(-x))
			Expect(metropolis.Accept(x, 1, u)).To(Equal(want))
		},
		Entry("downhill", -2.0, 0.999),
		Entry("flat", 0.0, 0.999),
		Entry("uphill accepted", 1.0, 0.3),
		Entry("uphill rejected", 1.0, 0.4),
		Entry("steep", 10.0, 1e-5),
	)

	It("always accepts when x <= -ln s", func() {
		Expect(metropolis.Accept(-math.Log(0.5), 0.5, 0.9999)).To(BeTrue())
		Expect(metropolis.Accept(0.5, 0.25, 0.9999)).To(BeTrue())
	})

	It("scales the acceptance by 1/s otherwise", func() {
		// exp(0)/4 = 0.25
		Expect(metropolis.Accept(0, 4, 0.24)).To(BeTrue())
		Expect(metropolis.Accept(0, 4, 0.26)).To(BeFalse())
	})
})

var _ = Describe("Parameters", func() {
	It("rejects negative values", func() {
		p := metropolis.DefaultParameters()
		p.MeasurementNumber = -1
		Expect(p.Validate()).To(MatchError(mc.ErrParameterBounds))

		_, err := metropolis.New[int](p, models.NewIsing([]int{4}, 1), rng.NewMT19937(0))
		Expect(err).To(MatchError(mc.ErrParameterBounds))
	})

	It("accepts the defaults", func() {
		Expect(metropolis.DefaultParameters().Validate()).To(Succeed())
	})
})

var _ = Describe("Engine", func() {
	var lattice *models.Ising

	BeforeEach(func() {
		lattice = models.NewIsing([]int{6, 6}, 1)
	})

	It("accepts every executable move at infinite temperature", func() {
		e, err := metropolis.New[int](metropolis.DefaultParameters(), lattice, rng.NewMT19937(1))
		Expect(err).NotTo(HaveOccurred())

		e.RunSteps(1000, 0)
		Expect(e.Stats().Accepted).To(Equal(int64(1000)))
		Expect(e.Stats().Rejected).To(BeZero())
		Expect(e.Stats().AcceptanceRate()).To(Equal(1.0))
	})

	It("never leaves the ground state at very low temperature", func() {
		e, _ := metropolis.New[int](metropolis.DefaultParameters(), lattice, rng.NewMT19937(2))

		e.RunSteps(500, 50)
		Expect(lattice.Energy()).To(Equal(-72))
		Expect(e.Stats().Accepted).To(BeZero())
	})

	It("counts non-executable proposals as null moves", func() {
		toy := models.NewTwoLevel(1)
		e, _ := metropolis.New[int](metropolis.DefaultParameters(), toy, rng.NewMT19937(3))

		e.RunSteps(2000, 0)
		st := e.Stats()
		Expect(st.Total()).To(Equal(int64(2000)))
		Expect(st.Null).To(BeNumerically(">", 700))
		Expect(st.Accepted).To(BeNumerically(">", 700))
	})

	It("reports steps and measurements to the recorder", func() {
		rec := metrics.NewRecorder(prometheus.NewRegistry())
		p := metropolis.Parameters{RelaxationSteps: 10, MeasurementNumber: 5, StepsBetweenMeasurement: 4}
		e, _ := metropolis.New[int](p, lattice, rng.NewMT19937(4), metropolis.WithRecorder(rec))

		metropolis.Simulate(context.Background(), e, 0.3, models.EnergyPerSite)

		total := testutil.ToFloat64(rec.Steps.WithLabelValues(metrics.EngineMetropolis, metrics.OutcomeAccepted)) +
			testutil.ToFloat64(rec.Steps.WithLabelValues(metrics.EngineMetropolis, metrics.OutcomeRejected))
		Expect(total).To(Equal(30.0))
		Expect(testutil.ToFloat64(rec.Measurements)).To(Equal(5.0))
	})

	Context("with an asymmetric proposal", func() {
		params := metropolis.Parameters{RelaxationSteps: 100, MeasurementNumber: 20000, StepsBetweenMeasurement: 2}

		It("samples the uniform distribution when the factor is reported", func() {
			pair := &biasedPair{p: 0.8, corrected: true}
			e, _ := metropolis.New[int](params, pair, rng.NewMT19937(5))

			samples := metropolis.Simulate(context.Background(), e, 1, pairState)
			Expect(mean(samples)).To(BeNumerically("~", 0.5, 0.03))
		})

		It("is biased towards the favoured state without the factor", func() {
			pair := &biasedPair{p: 0.8, corrected: false}
			e, _ := metropolis.New[int](params, pair, rng.NewMT19937(5))

			samples := metropolis.Simulate(context.Background(), e, 1, pairState)
			Expect(mean(samples)).To(BeNumerically("~", 0.8, 0.03))
		})
	})

	It("reproduces the exact mean energy of an Ising chain", func() {
		// <E>/N of a periodic chain approaches -tanh(beta) for large N.
		chain := models.NewIsing([]int{64}, 1)
		p := metropolis.Parameters{RelaxationSteps: 20000, MeasurementNumber: 4000, StepsBetweenMeasurement: 64}
		e, _ := metropolis.New[int](p, chain, rng.NewMT19937(6))

		samples := metropolis.Simulate(context.Background(), e, 0.5, models.EnergyPerSite)
		Expect(mean(samples)).To(BeNumerically("~", -math.Tanh(0.5), 0.02))
	})
})
