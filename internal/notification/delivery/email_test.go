package delivery_test

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/tunneledge/internal/domain"
	"github.com/jordigilh/tunneledge/internal/notification/delivery"
)

// fakeSMTPServer speaks just enough SMTP to let smtp.SendMail complete
// successfully, and records the DATA payload it received.
type fakeSMTPServer struct {
	listener net.Listener
	received chan string
}

func newFakeSMTPServer() *fakeSMTPServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	s := &fakeSMTPServer{listener: ln, received: make(chan string, 4)}
	go s.serve()
	return s
}

func (s *fakeSMTPServer) addr() string { return s.listener.Addr().String() }

func (s *fakeSMTPServer) close() { s.listener.Close() }

func (s *fakeSMTPServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTPServer) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	fmt.Fprint(conn, "220 fake.smtp ready\r\n")

	var data strings.Builder
	inData := false
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		trimmed := strings.TrimRight(line, "\r\n")

		if inData {
			if trimmed == "." {
				inData = false
				s.received <- data.String()
				fmt.Fprint(conn, "250 OK\r\n")
				continue
			}
			data.WriteString(trimmed)
			data.WriteString("\n")
			continue
		}

		upper := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upper, "EHLO") || strings.HasPrefix(upper, "HELO"):
			fmt.Fprint(conn, "250-fake.smtp\r\n250 OK\r\n")
		case strings.HasPrefix(upper, "MAIL FROM"):
			fmt.Fprint(conn, "250 OK\r\n")
		case strings.HasPrefix(upper, "RCPT TO"):
			fmt.Fprint(conn, "250 OK\r\n")
		case upper == "DATA":
			inData = true
			fmt.Fprint(conn, "354 go ahead\r\n")
		case upper == "QUIT":
			fmt.Fprint(conn, "221 bye\r\n")
			return
		default:
			fmt.Fprint(conn, "250 OK\r\n")
		}
	}
}

var _ = Describe("EmailService", func() {
	var server *fakeSMTPServer

	BeforeEach(func() {
		server = newFakeSMTPServer()
	})

	AfterEach(func() {
		server.close()
	})

	It("sends the configured message to the recipients for the event's level", func() {
		host, port := splitHostPort(server.addr())
		svc := delivery.NewEmailService(delivery.EmailConfig{
			Host: host,
			Port: port,
			From: "edge-platform@example.com",
			Recipients: map[string][]string{
				string(domain.LevelAlarm): {"oncall@example.com"},
			},
		})

		err := svc.Deliver(context.Background(), delivery.Message{
			Event:   domain.WarningEvent{WarningLevel: domain.LevelAlarm, RingNumber: 7},
			Subject: "ALARM ring 7",
			Body:    "volume_loss_ratio exceeded threshold",
		})
		Expect(err).NotTo(HaveOccurred())

		Eventually(server.received).Should(Receive(ContainSubstring("volume_loss_ratio exceeded threshold")))
	})

	It("sends nothing when no recipients are configured for the level", func() {
		host, port := splitHostPort(server.addr())
		svc := delivery.NewEmailService(delivery.EmailConfig{Host: host, Port: port, From: "edge-platform@example.com"})

		err := svc.Deliver(context.Background(), delivery.Message{
			Event: domain.WarningEvent{WarningLevel: domain.LevelAttention},
		})
		Expect(err).NotTo(HaveOccurred())
		Consistently(server.received).ShouldNot(Receive())
	})

	It("renders a batch digest combining every message's subject and body", func() {
		host, port := splitHostPort(server.addr())
		svc := delivery.NewEmailService(delivery.EmailConfig{Host: host, Port: port, From: "edge-platform@example.com"})

		err := svc.DeliverBatch(context.Background(), []string{"shift-lead@example.com"}, "Shift digest", []delivery.Message{
			{Subject: "ring 1", Body: "nominal"},
			{Subject: "ring 2", Body: "torque spike"},
		})
		Expect(err).NotTo(HaveOccurred())

		Eventually(server.received).Should(Receive(And(ContainSubstring("ring 1"), ContainSubstring("torque spike"))))
	})
})

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	Expect(err).NotTo(HaveOccurred())
	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	Expect(err).NotTo(HaveOccurred())
	return host, port
}
