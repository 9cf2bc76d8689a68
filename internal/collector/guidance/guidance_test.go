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

package guidance

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/domain"
)

func TestGuidanceCollector(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Guidance Collector Suite")
}

func float32Words(v float32) []uint16 {
	bits := math.Float32bits(v)
	return []uint16{uint16(bits >> 16), uint16(bits)}
}

// fakeReader maps a register address to a canned response or error.
type fakeReader struct {
	mu        sync.Mutex
	responses map[uint16][]uint16
	failAddr  uint16
}

func (f *fakeReader) Connect(ctx context.Context) error { return nil }

func (f *fakeReader) ReadRegisters(ctx context.Context, address, count uint16) ([]uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if address == f.failAddr {
		return nil, errors.New("read timeout")
	}
	return f.responses[address], nil
}

func regMap() RegisterMap {
	return RegisterMap{
		Pitch:               RegisterSpec{Address: 0, Count: 2, Type: Float32},
		Roll:                RegisterSpec{Address: 2, Count: 2, Type: Float32},
		Yaw:                 RegisterSpec{Address: 4, Count: 2, Type: Float32},
		HorizontalDeviation: RegisterSpec{Address: 6, Count: 1, Type: Int16},
		VerticalDeviation:   RegisterSpec{Address: 7, Count: 1, Type: Int16},
		AxisDeviation:       RegisterSpec{Address: 8, Count: 1, Type: UInt16},
	}
}

var _ = Describe("decode", func() {
	It("decodes a big-endian float32 register pair", func() {
		v, err := decode(RegisterSpec{Count: 2, Type: Float32}, float32Words(12.5))
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(BeNumerically("~", 12.5, 1e-6))
	})

	It("decodes a signed int16 register", func() {
		v, err := decode(RegisterSpec{Count: 1, Type: Int16}, []uint16{0xFFFE})
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(Equal(-2.0))
	})

	It("decodes a signed int32 register pair", func() {
		v, err := decode(RegisterSpec{Count: 2, Type: Int32}, []uint16{0x0001, 0x0000})
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(Equal(65536.0))
	})
})

var _ = Describe("Collector", func() {
	It("emits one AttitudeReading per completed poll", func() {
		reader := &fakeReader{responses: map[uint16][]uint16{
			0: float32Words(1.0),
			2: float32Words(2.0),
			4: float32Words(3.0),
			6: {5},
			7: {6},
			8: {7},
		}}

		var mu sync.Mutex
		var got []domain.Sample
		sink := func(s domain.Sample) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, s)
		}

		c := New("guidance-test", reader, regMap(), time.Millisecond, sink, nil)
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
		sample := got[0]
		Expect(sample.Kind).To(Equal(domain.SampleKindAttitude))
		Expect(sample.Attitude.Pitch).To(BeNumerically("~", 1.0, 1e-6))
		Expect(sample.Attitude.AxisDeviation).To(Equal(7.0))
	})

	It("emits nothing for a poll where a required field fails to read", func() {
		reader := &fakeReader{failAddr: 4, responses: map[uint16][]uint16{
			0: float32Words(1.0),
			2: float32Words(2.0),
			6: {5},
			7: {6},
			8: {7},
		}}

		var mu sync.Mutex
		emitted := 0
		sink := func(domain.Sample) {
			mu.Lock()
			defer mu.Unlock()
			emitted++
		}

		c := New("guidance-test", reader, regMap(), time.Millisecond, sink, nil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_ = c.Run(ctx)
			close(done)
		}()

		Consistently(func() int {
			mu.Lock()
			defer mu.Unlock()
			return emitted
		}, 50*time.Millisecond, 5*time.Millisecond).Should(Equal(0))

		cancel()
		Eventually(done).Should(BeClosed())
	})
})
