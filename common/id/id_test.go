package id_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Samoxive/modbot/common/id"
)

var _ = Describe("id", func() {
	It("generates increasing unique ids", func() {
		Expect(id.Init(3)).To(Succeed())

		seen := map[int64]bool{}
		prev := int64(0)
		for range 1000 {
			next := id.New()
			Expect(seen).NotTo(HaveKey(next))
			Expect(next).To(BeNumerically(">", prev))
			seen[next] = true
			prev = next
		}
	})

	It("rejects node ids outside the snowflake range", func() {
		Expect(id.Init(5000)).NotTo(Succeed())
	})
})
