package metropolis_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SpeckFleck/mocasinns/internal/histogram"
	"github.com/SpeckFleck/mocasinns/internal/mc"
	"github.com/SpeckFleck/mocasinns/internal/metropolis"
	"github.com/SpeckFleck/mocasinns/internal/models"
	"github.com/SpeckFleck/mocasinns/internal/rng"
)

var _ = Describe("Ensemble", func() {
	params := metropolis.Parameters{RelaxationSteps: 100, MeasurementNumber: 25, StepsBetweenMeasurement: 16}

	lattices := func(int) (mc.Configuration[int], error) {
		return models.NewIsing([]int{4, 4}, 1), nil
	}

	It("validates its arguments", func() {
		_, err := metropolis.NewEnsemble(params, 0, rng.Key(1), lattices)
		Expect(err).To(MatchError(mc.ErrParameterBounds))

		bad := params
		bad.RelaxationSteps = -1
		_, err = metropolis.NewEnsemble(bad, 2, rng.Key(1), lattices)
		Expect(err).To(MatchError(mc.ErrParameterBounds))
	})

	It("runs every replica with its own stream", func() {
		ens, err := metropolis.NewEnsemble(params, 4, rng.Key(7), lattices)
		Expect(err).NotTo(HaveOccurred())

		results, err := metropolis.RunEnsemble(context.Background(), ens, 0.3, models.EnergyPerSite)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))
		for _, r := range results {
			Expect(r).To(HaveLen(25))
		}
		Expect(results[0]).NotTo(Equal(results[1]))
	})

	It("is reproducible for a fixed key", func() {
		run := func() [][]mc.Scalar {
			ens, _ := metropolis.NewEnsemble(params, 3, rng.Key(99), lattices)
			results, err := metropolis.RunEnsemble(context.Background(), ens, 0.3, models.EnergyPerSite)
			Expect(err).NotTo(HaveOccurred())
			return results
		}
		Expect(run()).To(Equal(run()))
	})

	It("returns the first factory error", func() {
		boom := errors.New("boom")
		ens, _ := metropolis.NewEnsemble(params, 3, rng.Key(1), func(i int) (mc.Configuration[int], error) {
			if i == 2 {
				return nil, boom
			}
			return models.NewIsing([]int{4}, 1), nil
		})

		_, err := metropolis.RunEnsemble(context.Background(), ens, 0.3, models.EnergyPerSite)
		Expect(err).To(MatchError(boom))
		Expect(err.Error()).To(ContainSubstring("replica 2"))
	})

	It("stops every replica on cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ens, _ := metropolis.NewEnsemble(params, 3, rng.Key(1), lattices)
		results, err := metropolis.RunEnsemble(ctx, ens, 0.3, models.EnergyPerSite)
		Expect(err).NotTo(HaveOccurred())
		for _, r := range results {
			Expect(r).To(BeEmpty())
		}
	})

	It("merges per-replica histograms", func() {
		ens, _ := metropolis.NewEnsemble(params, 4, rng.Key(3), lattices)

		h, err := metropolis.RunEnsembleHistogram(context.Background(), ens, 0.3, models.TotalEnergy, histogram.Identity[int]{})
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Sum()).To(Equal(int64(4 * 25)))
		for _, k := range h.Keys() {
			Expect(k).To(BeNumerically(">=", -32))
			Expect(k).To(BeNumerically("<=", 32))
		}
	})

	It("merges joint energy and magnetization histograms", func() {
		ens, _ := metropolis.NewEnsemble(params, 3, rng.Key(5), lattices)
		binning := histogram.PairBinning[int]{X: histogram.Fixed[int]{Width: 8}}

		h, err := metropolis.RunEnsembleHistogram(context.Background(), ens, 0.3, models.EnergyMagnetizationPair, binning)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Sum()).To(Equal(int64(3 * 25)))
		for _, k := range h.Keys() {
			Expect(k.X % 8).To(BeZero())
			Expect(k.Y).To(BeNumerically(">=", -16))
			Expect(k.Y).To(BeNumerically("<=", 16))
			Expect(k.Y % 2).To(BeZero())
		}
	})
})
