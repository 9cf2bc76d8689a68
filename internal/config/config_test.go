package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("when config file exists with valid content", func() {
			BeforeEach(func() {
				validConfig := `
server:
  http_port: "8080"
  metrics_port: "9090"

collectors:
  plc_tags:
    - "thrust"
    - "torque"
  guidance:
    poll_interval: "1s"
  monitoring:
    - name: "settlement"
      url: "http://localhost:9200/sensors"
      poll_interval: "5m"
      max_attempts: 4

quality:
  thresholds_path: "/etc/tunneledge/thresholds.yaml"
  max_gap_seconds: 5

buffer:
  max_size: 10000
  overflow_policy: "drop_oldest"
  flush_interval: "10s"

ring:
  width_mm: 1500
  tolerance_mm: 200
  typical_duration: "45m"

warning:
  thresholds_path: "/etc/tunneledge/warning-thresholds.yaml"
  hysteresis_percentage: 0.05

logging:
  level: "info"
  format: "json"
`
				err := os.WriteFile(configFile, []byte(validConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())

				Expect(cfg.Server.HTTPPort).To(Equal("8080"))
				Expect(cfg.Server.MetricsPort).To(Equal("9090"))

				Expect(cfg.Collectors.PLCTags).To(ContainElements("thrust", "torque"))
				Expect(cfg.Collectors.Guidance.PollInterval).To(Equal(time.Second))
				Expect(cfg.Collectors.Monitoring).To(HaveLen(1))
				Expect(cfg.Collectors.Monitoring[0].MaxAttempts).To(Equal(4))

				Expect(cfg.Quality.MaxGapSeconds).To(Equal(5.0))
				Expect(cfg.Buffer.MaxSize).To(Equal(10000))
				Expect(cfg.Buffer.OverflowPolicy).To(Equal("drop_oldest"))
				Expect(cfg.Buffer.FlushInterval).To(Equal(10 * time.Second))

				Expect(cfg.Ring.WidthMM).To(Equal(1500.0))
				Expect(cfg.Ring.TypicalDuration).To(Equal(45 * time.Minute))

				Expect(cfg.Warning.HysteresisPercentage).To(Equal(0.05))

				Expect(cfg.Logging.Level).To(Equal("info"))
				Expect(cfg.Logging.Format).To(Equal("json"))
			})
		})

		Context("when config file has minimal content", func() {
			BeforeEach(func() {
				err := os.WriteFile(configFile, []byte("server:\n  http_port: \"8080\"\n"), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should apply defaults for everything else", func() {
				cfg, err := config.Load(configFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Buffer.MaxSize).To(Equal(10000))
				Expect(cfg.Buffer.OverflowPolicy).To(Equal("drop_oldest"))
				Expect(cfg.Ring.WidthMM).To(Equal(1500.0))
				Expect(cfg.Ring.ToleranceMM).To(Equal(200.0))
				Expect(cfg.Warning.HysteresisPercentage).To(Equal(0.05))
				Expect(cfg.Logging.Level).To(Equal("info"))
				Expect(cfg.Logging.Format).To(Equal("json"))
			})
		})

		Context("when config file does not exist", func() {
			It("should return an error", func() {
				_, err := config.Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})

		Context("when config file is malformed YAML", func() {
			BeforeEach(func() {
				err := os.WriteFile(configFile, []byte("server: [this is not valid\n"), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an error", func() {
				_, err := config.Load(configFile)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Watcher", func() {
		It("invokes registered callbacks when a watched file changes", func() {
			err := os.WriteFile(configFile, []byte("a: 1\n"), 0644)
			Expect(err).NotTo(HaveOccurred())

			w, err := config.NewWatcher(configFile)
			Expect(err).NotTo(HaveOccurred())
			defer w.Close()

			changed := make(chan string, 1)
			w.OnChange(func(path string) {
				select {
				case changed <- path:
				default:
				}
			})

			Expect(os.WriteFile(configFile, []byte("a: 2\n"), 0644)).To(Succeed())

			Eventually(changed, "2s").Should(Receive(Equal(configFile)))
		})
	})
})
