package ladder_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/qlattice/internal/ladder"
)

func TestLadder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ladder Suite")
}

var _ = Describe("Generate", func() {
	It("returns nothing for non-positive counts", func() {
		Expect(ladder.Generate(0, 0.5, 10)).To(BeEmpty())
		Expect(ladder.Generate(-3, 0.5, 10)).To(BeEmpty())
	})

	It("returns 1/tMin for a single chain", func() {
		Expect(ladder.Generate(1, 0.5, 10)).To(Equal([]float64{2.0}))
	})

	It("repeats 1/t for a degenerate range", func() {
		betas := ladder.Generate(5, 2.0, 2.0)
		Expect(betas).To(HaveLen(5))
		for _, b := range betas {
			Expect(b).To(BeNumerically("~", 0.5, 1e-12))
		}
	})

	It("spaces chains geometrically from cold to hot", func() {
		betas := ladder.Generate(4, 0.5, 10.0)
		Expect(betas).To(HaveLen(4))
		// ratio = (10/0.5)^(1/3) = 2.714...
		Expect(betas[0]).To(BeNumerically("~", 2.0, 1e-4))
		Expect(betas[1]).To(BeNumerically("~", 0.7368, 1e-4))
		Expect(betas[2]).To(BeNumerically("~", 0.2714, 1e-4))
		Expect(betas[3]).To(BeNumerically("~", 0.1, 1e-4))
	})

	It("is strictly decreasing when tMin != tMax", func() {
		betas := ladder.Generate(8, 0.1, 25.0)
		for i := 1; i < len(betas); i++ {
			Expect(betas[i]).To(BeNumerically("<", betas[i-1]))
		}
	})

	It("hits both endpoints of the temperature range", func() {
		betas := ladder.Generate(6, 0.5, 10.0)
		Expect(1 / betas[0]).To(BeNumerically("~", 0.5, 1e-9))
		Expect(1 / betas[5]).To(BeNumerically("~", 10.0, 1e-9))
	})
})

var _ = Describe("Temperatures", func() {
	It("inverts the ladder", func() {
		betas := ladder.Generate(4, 0.5, 10.0)
		ts := ladder.Temperatures(betas)
		Expect(ts[0]).To(BeNumerically("~", 0.5, 1e-9))
		Expect(ts[3]).To(BeNumerically("~", 10.0, 1e-9))
	})
})
