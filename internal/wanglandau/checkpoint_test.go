package wanglandau_test

import (
	"bytes"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SpeckFleck/mocasinns/internal/histogram"
	"github.com/SpeckFleck/mocasinns/internal/models"
	"github.com/SpeckFleck/mocasinns/internal/rng"
	"github.com/SpeckFleck/mocasinns/internal/wanglandau"
)

// plainSource is a random source without state serialization.
type plainSource struct{ src *rng.MT19937 }

func (p plainSource) Float64() float64 { return p.src.Float64() }
func (p plainSource) Seed(s uint64)    { p.src.Seed(s) }

var _ = Describe("Checkpoint", func() {
	params := wanglandau.Parameters{
		ModificationFactorInitial:    1,
		ModificationFactorFinal:      1e-4,
		ModificationFactorMultiplier: 0.5,
		Flatness:                     0.7,
		SweepSteps:                   500,
	}

	newEngine := func(seed uint64) *wanglandau.Engine[int] {
		e, err := wanglandau.New[int](params, models.NewIsing([]int{4, 4}, 1), rng.NewMT19937(seed), nil)
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	advance := func(e *wanglandau.Engine[int], sweeps int) {
		for i := 0; i < sweeps && !e.Converged(); i++ {
			e.DoSteps(500)
			e.CheckFlatness()
		}
	}

	It("continues identically after a restore", func() {
		original := newEngine(1)
		advance(original, 12)

		var buf bytes.Buffer
		Expect(original.Save(&buf)).To(Succeed())
		saved := buf.String()

		advance(original, 10)

		restored := newEngine(999)
		Expect(restored.Load(strings.NewReader(saved))).To(Succeed())
		advance(restored, 10)

		Expect(restored.DensityOfStates().Equal(original.DensityOfStates())).To(BeTrue())
		Expect(restored.Visits().Equal(original.Visits())).To(BeTrue())
		Expect(restored.Energy()).To(Equal(original.Energy()))
		Expect(restored.Steps()).To(Equal(original.Steps()))
		Expect(restored.Epoch()).To(Equal(original.Epoch()))
		Expect(restored.ModificationFactor()).To(Equal(original.ModificationFactor()))
		Expect(restored.State()).To(Equal(original.State()))
	})

	It("writes a versioned document", func() {
		e := newEngine(2)
		e.DoSteps(100)

		var buf bytes.Buffer
		Expect(e.Save(&buf)).To(Succeed())
		Expect(buf.String()).To(HavePrefix("version: 1\n"))
		Expect(buf.String()).To(ContainSubstring("density_of_states:"))
		Expect(buf.String()).To(ContainSubstring("rng:"))
		Expect(buf.String()).To(ContainSubstring("configuration:"))
	})

	It("round-trips through a file", func() {
		e := newEngine(3)
		advance(e, 4)
		path := filepath.Join(GinkgoT().TempDir(), "wl.yaml")
		Expect(e.SaveFile(path)).To(Succeed())

		restored := newEngine(4)
		Expect(restored.LoadFile(path)).To(Succeed())
		Expect(restored.DensityOfStates().Equal(e.DensityOfStates())).To(BeTrue())
		Expect(restored.Parameters()).To(Equal(e.Parameters()))
	})

	It("reports a missing file", func() {
		Expect(newEngine(1).LoadFile(filepath.Join(GinkgoT().TempDir(), "absent.yaml"))).NotTo(Succeed())
	})

	Describe("rejects", func() {
		var saved string

		BeforeEach(func() {
			e := newEngine(5)
			e.DoSteps(200)
			var buf bytes.Buffer
			Expect(e.Save(&buf)).To(Succeed())
			saved = buf.String()
		})

		expectUntouched := func(e *wanglandau.Engine[int]) {
			Expect(e.Steps()).To(BeZero())
			Expect(e.DensityOfStates().Len()).To(BeZero())
		}

		It("an unknown version", func() {
			e := newEngine(6)
			err := e.Load(strings.NewReader(strings.Replace(saved, "version: 1", "version: 2", 1)))
			Expect(err).To(MatchError(histogram.ErrUnsupportedVersion))
			expectUntouched(e)
		})

		It("garbage", func() {
			e := newEngine(6)
			Expect(e.Load(strings.NewReader("{{{"))).To(MatchError(wanglandau.ErrCheckpoint))
			Expect(e.Load(strings.NewReader(""))).To(MatchError(wanglandau.ErrCheckpoint))
			expectUntouched(e)
		})

		It("a malformed histogram record", func() {
			e := newEngine(6)
			i := strings.Index(saved, "density_of_states:")
			j := i + strings.Index(saved[i:], `bin: "`) + len(`bin: "`)
			broken := saved[:j] + "x" + saved[j:]
			Expect(e.Load(strings.NewReader(broken))).To(MatchError(histogram.ErrMalformed))
			expectUntouched(e)
		})

		It("random state the source cannot restore", func() {
			e, _ := wanglandau.New[int](params, models.NewIsing([]int{4, 4}, 1), plainSource{rng.NewMT19937(1)}, nil)
			Expect(e.Load(strings.NewReader(saved))).To(MatchError(wanglandau.ErrCheckpoint))
			expectUntouched(e)
		})

		It("a configuration of a different shape", func() {
			e, _ := wanglandau.New[int](params, models.NewIsing([]int{8}, 1), rng.NewMT19937(1), nil)
			Expect(e.Load(strings.NewReader(saved))).To(MatchError(models.ErrState))
			expectUntouched(e)
		})
	})
})
