package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aravk2005/ARMsimulator/cache"
)

var _ = Describe("Cache", func() {
	var c *cache.Cache

	BeforeEach(func() {
		// 1KB, 2-way, 32B lines
		c = cache.New(cache.Config{
			Size:          1024,
			Associativity: 2,
			BlockSize:     32,
			HitLatency:    1,
			MissLatency:   10,
		})
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			result := c.Read(0x100)

			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on a repeated address", func() {
			c.Read(0x100)
			result := c.Read(0x100)

			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(c.Stats().Latency).To(Equal(uint64(11)))
		})

		It("should hit on different addresses in same cache line", func() {
			c.Read(0x100)

			Expect(c.Read(0x11C).Hit).To(BeTrue())
			Expect(c.Read(0x120).Hit).To(BeFalse())
		})
	})

	Describe("Write operations", func() {
		It("should allocate on a write miss", func() {
			Expect(c.Write(0x40).Hit).To(BeFalse())
			Expect(c.Read(0x40).Hit).To(BeTrue())

			stats := c.Stats()
			Expect(stats.Writes).To(Equal(uint64(1)))
			Expect(stats.Reads).To(Equal(uint64(1)))
		})
	})

	Describe("Eviction", func() {
		BeforeEach(func() {
			// One set, two ways
			c = cache.New(cache.Config{Size: 64, Associativity: 2, BlockSize: 32, HitLatency: 1, MissLatency: 10})
		})

		It("should evict the least recently used line", func() {
			c.Read(0x00)
			c.Read(0x20)
			c.Read(0x00)

			result := c.Read(0x40)
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(uint32(0x20)))

			Expect(c.Read(0x00).Hit).To(BeTrue())
			Expect(c.Read(0x20).Hit).To(BeFalse())
		})

		It("should count a writeback for a dirty victim", func() {
			c.Write(0x00)
			c.Read(0x20)
			c.Read(0x40)

			stats := c.Stats()
			Expect(stats.Evictions).To(Equal(uint64(1)))
			Expect(stats.Writebacks).To(Equal(uint64(1)))
		})
	})

	Describe("Flush and Reset", func() {
		It("should write back dirty lines and invalidate on flush", func() {
			c.Write(0x00)
			c.Read(0x200)
			c.Flush()

			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
			Expect(c.Read(0x00).Hit).To(BeFalse())
		})

		It("should clear statistics on reset", func() {
			c.Read(0x00)
			c.Reset()

			Expect(c.Stats()).To(Equal(cache.Statistics{}))
			Expect(c.Read(0x00).Hit).To(BeFalse())
		})
	})

	Describe("Statistics", func() {
		It("should report the hit rate", func() {
			Expect(c.Stats().HitRate()).To(Equal(0.0))

			c.Read(0x00)
			c.Read(0x00)
			c.Write(0x04)
			c.Write(0x400)

			Expect(c.Stats().Accesses()).To(Equal(uint64(4)))
			Expect(c.Stats().HitRate()).To(Equal(0.5))
		})
	})

	Describe("Config", func() {
		It("should accept the default geometry", func() {
			Expect(cache.DefaultConfig().Validate()).To(Succeed())
		})

		It("should reject bad geometries", func() {
			cfg := cache.DefaultConfig()
			cfg.Size = 0
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("size")))

			cfg = cache.DefaultConfig()
			cfg.BlockSize = 24
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("power of two")))

			cfg = cache.DefaultConfig()
			cfg.Size = 1000
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("multiple")))

			cfg = cache.DefaultConfig()
			cfg.Associativity = 0
			Expect(cfg.Validate()).To(HaveOccurred())
		})
	})
})
