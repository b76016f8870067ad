package timing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Freq", func() {
	It("should get period", func() {
		var f = 1 * GHz
		Expect(f.Period()).To(BeNumerically("==", 1e-9))
	})

	It("should convert a period in nanoseconds", func() {
		f := FreqFromPeriodNs(50000)
		Expect(f).To(Equal(20 * KHz))
	})

	It("should map a zero period to a zero frequency", func() {
		Expect(FreqFromPeriodNs(0)).To(Equal(Freq(0)))
		Expect(FreqFromPeriodNs(-5)).To(Equal(Freq(0)))
	})

	It("should panic on the period of a zero frequency", func() {
		Expect(func() { Freq(0).Period() }).To(Panic())
	})

	It("should get this tick", func() {
		var f = 1 * Hz
		Expect(f.ThisTick(1)).To(BeNumerically("~", 1, 1e-12))
	})

	It("should get the next tick", func() {
		var f = 1 * GHz
		Expect(f.NextTick(102.000000001)).To(BeNumerically("~", 102.000000002, 1e-12))
	})

	It("should get the next tick at a real-time rate", func() {
		var f = 20 * KHz
		Expect(f.NextTick(0)).To(BeNumerically("~", 5e-5, 1e-15))
		Expect(f.NextTick(5e-5)).To(BeNumerically("~", 1e-4, 1e-15))
	})

	It("should get the next tick, if currTime is not on a tick", func() {
		var f = 1 * GHz
		Expect(f.NextTick(102.0000000011)).To(BeNumerically("~", 102.000000002, 1e-12))
	})
})
