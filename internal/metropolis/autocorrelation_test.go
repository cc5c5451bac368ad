package metropolis_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SpeckFleck/mocasinns/internal/mc"
	"github.com/SpeckFleck/mocasinns/internal/metropolis"
	"github.com/SpeckFleck/mocasinns/internal/models"
	"github.com/SpeckFleck/mocasinns/internal/rng"
)

var _ = Describe("Autocorrelation", func() {
	alternating := []mc.Scalar{1, -1, 1, -1, 1}

	It("averages window products and subtracts the squared mean", func() {
		c, err := metropolis.Autocorrelation(alternating, 2, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(HaveLen(3))

		// mean = 0.2
		Expect(float64(c[0])).To(BeNumerically("~", 0.96, 1e-12))
		Expect(float64(c[1])).To(BeNumerically("~", -1.04, 1e-12))
		Expect(float64(c[2])).To(BeNumerically("~", 0.96, 1e-12))
	})

	It("works component-wise on vectors", func() {
		samples := make([]mc.Vector, len(alternating))
		for i, s := range alternating {
			samples[i] = mc.Vector{float64(s), 2}
		}

		c, err := metropolis.Autocorrelation(samples, 2, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(c[1][0]).To(BeNumerically("~", -1.04, 1e-12))
		Expect(c[1][1]).To(BeNumerically("~", 0, 1e-12))
	})

	It("approximates the sample variance at t = 0", func() {
		src := rng.NewMT19937(8)
		samples := make([]mc.Scalar, 2*4000+1)
		for i := range samples {
			samples[i] = mc.Scalar(src.Float64())
		}

		c, err := metropolis.Autocorrelation(samples, 2, 4000)
		Expect(err).NotTo(HaveOccurred())
		// Var(U[0,1)) = 1/12
		Expect(float64(c[0])).To(BeNumerically("~", 1.0/12, 0.015))
		Expect(float64(c[1])).To(BeNumerically("~", 0, 0.015))
	})

	It("rejects too few samples and empty windows", func() {
		_, err := metropolis.Autocorrelation(alternating, 2, 3)
		Expect(err).To(MatchError(mc.ErrDimensionMismatch))

		_, err = metropolis.Autocorrelation(alternating, 0, 2)
		Expect(err).To(MatchError(mc.ErrParameterBounds))

		_, err = metropolis.Autocorrelation(alternating, 2, 0)
		Expect(err).To(MatchError(mc.ErrParameterBounds))
	})
})

var _ = Describe("IntegratedTime", func() {
	It("integrates the normalized autocorrelation", func() {
		c := []mc.Scalar{0.96, -1.04, 0.96}
		tau, err := metropolis.IntegratedTime(c, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(float64(tau)).To(BeNumerically("~", 1-1.04/0.96, 1e-12))
	})

	It("is 1 for uncorrelated data", func() {
		tau, err := metropolis.IntegratedTime([]mc.Scalar{2, 0, 0, 0}, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(tau).To(Equal(mc.Scalar(1)))
	})

	It("flags a zero C(0) as degenerate", func() {
		_, err := metropolis.IntegratedTime([]mc.Scalar{0, 0.1}, 2)
		Expect(err).To(MatchError(metropolis.ErrZeroVariance))
		Expect(err).To(MatchError(mc.ErrDegenerate))

		_, err = metropolis.IntegratedTime([]mc.Vector{{1, 0}, {0.5, 0}}, 2)
		Expect(err).To(MatchError(metropolis.ErrZeroVariance))
	})

	It("rejects n beyond the function length", func() {
		_, err := metropolis.IntegratedTime([]mc.Scalar{1, 0.5}, 3)
		Expect(err).To(MatchError(mc.ErrDimensionMismatch))
	})
})

var _ = Describe("AutocorrelationFunction", func() {
	params := metropolis.Parameters{RelaxationSteps: 2000, MeasurementNumber: 0, StepsBetweenMeasurement: 0}

	It("samples one sweep apart", func() {
		lattice := models.NewIsing([]int{8, 8}, 1)
		e, _ := metropolis.New[int](params, lattice, rng.NewMT19937(9))

		c, err := metropolis.AutocorrelationFunction(e, 0.3, 10, 20, models.EnergyPerSite)
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(HaveLen(11))
		Expect(float64(c[0])).To(BeNumerically(">", 0))
		Expect(e.Stats().Total()).To(Equal(int64(2000 + (10*20+1)*64)))
	})

	It("fails on a frozen configuration", func() {
		lattice := models.NewIsing([]int{8, 8}, 1)
		e, _ := metropolis.New[int](params, lattice, rng.NewMT19937(10))

		// 3*5+1 = 16 samples of a constant keep the mean exact.
		_, err := metropolis.IntegratedAutocorrelationTime(e, 100, 3, 5, models.EnergyPerSite)
		Expect(err).To(MatchError(metropolis.ErrZeroVariance))
	})

	It("gives a positive integrated time for an equilibrated lattice", func() {
		lattice := models.NewIsing([]int{8, 8}, 1)
		e, _ := metropolis.New[int](params, lattice, rng.NewMT19937(11))

		tau, err := metropolis.IntegratedAutocorrelationTime(e, 0.3, 10, 200, models.EnergyPerSite)
		Expect(err).NotTo(HaveOccurred())
		Expect(float64(tau)).To(BeNumerically(">", 0))
	})
})
