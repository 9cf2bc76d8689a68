package configcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/warning/configcache"
)

func TestConfigCache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Warning Config Cache Suite")
}

func f(v float64) *float64 { return &v }

var _ = Describe("Cache", func() {
	var (
		server *miniredis.Miniredis
		client *redis.Client
		cache  *configcache.Cache
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		server, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(&redis.Options{Addr: server.Addr()})
		cache = configcache.New(client, time.Minute, logr.Discard())
		ctx = context.Background()
	})

	AfterEach(func() {
		client.Close()
		server.Close()
	})

	It("misses on an unset key", func() {
		_, found, err := cache.Get(ctx, "thrust", "zone-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("round-trips a threshold through Set/Get", func() {
		th := domain.WarningThreshold{
			IndicatorName: "thrust",
			GeologicalZone: "zone-a",
			Warning:       domain.Tier{Upper: f(1800)},
		}
		Expect(cache.Set(ctx, th)).To(Succeed())

		got, found, err := cache.Get(ctx, "thrust", "zone-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(*got.Warning.Upper).To(Equal(1800.0))
	})

	It("evicts an entry on Invalidate", func() {
		th := domain.WarningThreshold{IndicatorName: "thrust", GeologicalZone: "zone-a"}
		Expect(cache.Set(ctx, th)).To(Succeed())
		Expect(cache.Invalidate(ctx, "thrust", "zone-a")).To(Succeed())

		_, found, err := cache.Get(ctx, "thrust", "zone-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("expires entries after the TTL elapses", func() {
		cache = configcache.New(client, time.Second, logr.Discard())
		th := domain.WarningThreshold{IndicatorName: "thrust", GeologicalZone: "zone-a"}
		Expect(cache.Set(ctx, th)).To(Succeed())

		server.FastForward(2 * time.Second)

		_, found, err := cache.Get(ctx, "thrust", "zone-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})
})
