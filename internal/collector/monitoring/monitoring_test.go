/*
Copyright 2026 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/domain"
)

func TestMonitoringCollector(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Monitoring Collector Suite")
}

var _ = Describe("parseItems", func() {
	It("parses a bare list", func() {
		items, err := parseItems([]byte(`[{"sensor_type":"piezometer","value":1.5}]`))
		Expect(err).ToNot(HaveOccurred())
		Expect(items).To(HaveLen(1))
		Expect(items[0].SensorType).To(Equal("piezometer"))
	})

	It("parses a sensors envelope", func() {
		items, err := parseItems([]byte(`{"sensors":[{"sensor_type":"inclinometer","value":0.2}]}`))
		Expect(err).ToNot(HaveOccurred())
		Expect(items).To(HaveLen(1))
		Expect(items[0].SensorType).To(Equal("inclinometer"))
	})

	It("parses a readings envelope", func() {
		items, err := parseItems([]byte(`{"readings":[{"sensor_type":"settlement_point","value":3.0}]}`))
		Expect(err).ToNot(HaveOccurred())
		Expect(items).To(HaveLen(1))
	})
})

var _ = Describe("Collector", func() {
	It("emits one Sample per item in the response", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"sensor_type":"piezometer","sensor_location":"P-1","value":2.1,"unit":"bar"}]`))
		}))
		defer srv.Close()

		var mu sync.Mutex
		var got []domain.Sample
		sink := func(s domain.Sample) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, s)
		}

		c := New(Endpoint{Name: "piezo", URL: srv.URL, PollInterval: 10 * time.Millisecond, MaxAttempts: 1}, nil, sink, nil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_ = c.Run(ctx)
			close(done)
		}()

		Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(got)
		}).Should(BeNumerically(">=", 1))

		cancel()
		Eventually(done).Should(BeClosed())

		mu.Lock()
		defer mu.Unlock()
		Expect(got[0].Kind).To(Equal(domain.SampleKindMonitoring))
		Expect(got[0].Monitoring.SensorLocation).To(Equal("P-1"))
	})

	It("retries up to MaxAttempts then surrenders the cycle", func() {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		var reportedMu sync.Mutex
		var reported []string
		report := func(name string, err error) {
			reportedMu.Lock()
			defer reportedMu.Unlock()
			reported = append(reported, name)
		}

		c := New(Endpoint{Name: "flaky", URL: srv.URL, PollInterval: time.Hour, MaxAttempts: 2}, nil, func(domain.Sample) {}, report)
		c.backoffInitial = time.Millisecond
		c.pollOnce(context.Background())

		Expect(atomic.LoadInt32(&hits)).To(Equal(int32(2)))
		reportedMu.Lock()
		defer reportedMu.Unlock()
		Expect(reported).To(ContainElement("flaky"))
	})
})
