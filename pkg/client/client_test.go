package client_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/nicholas-fedor/portainerctl/pkg/client"
)

// newTestClient builds a Client pointed at the mock server, overriding the
// transport so no TLS handshake is attempted.
func newTestClient(server *ghttp.Server, opts client.Options) *client.Client {
	serverURL, err := url.Parse(server.URL())
	gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())

	host, portText, err := net.SplitHostPort(serverURL.Host)
	gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())

	port, err := strconv.Atoi(portText)
	gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())

	opts.Host = host
	opts.Port = port
	opts.Scheme = "http"

	if opts.HTTPClient == nil {
		opts.HTTPClient = server.HTTPTestServer.Client()
	}

	if opts.Username == "" {
		opts.Username = "admin"
		opts.Password = "secret"
	}

	return client.New(opts)
}

// authHandler serves the credential exchange, verifying the posted
// credentials and returning the given token.
func authHandler(jwt string) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", "/api/auth"),
		ghttp.VerifyJSON(`{"username":"admin","password":"secret"}`),
		ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"jwt": jwt}),
	)
}

var _ = ginkgo.Describe("the request core", func() {
	var server *ghttp.Server
	var ctx context.Context

	ginkgo.BeforeEach(func() {
		server = ghttp.NewServer()
		ctx = context.Background()
	})
	ginkgo.AfterEach(func() {
		server.Close()
	})

	ginkgo.When("building request paths", func() {
		ginkgo.It("scopes relative paths through the default endpoint", func() {
			server.AppendHandlers(
				authHandler("test-token"),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest("GET", "/api/endpoints/1/docker/containers/json"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer test-token"),
					ghttp.VerifyHeaderKV("Accept", "application/json"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, []map[string]string{}),
				),
			)

			portainer := newTestClient(server, client.Options{})
			outcome, err := portainer.Do(ctx, client.Descriptor{Path: "/containers/json"})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(outcome.Kind).To(gomega.Equal(client.KindJSON))
		})

		ginkgo.It("scopes relative paths through a custom endpoint id", func() {
			server.AppendHandlers(
				authHandler("test-token"),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest("GET", "/api/endpoints/5/docker/version"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"Version": "27.0.1"}),
				),
			)

			portainer := newTestClient(server, client.Options{EndpointID: 5})
			outcome, err := portainer.Do(ctx, client.Descriptor{Path: "/version"})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(outcome.Kind).To(gomega.Equal(client.KindJSON))
		})

		ginkgo.It("attaches absolute paths directly to the API root", func() {
			server.AppendHandlers(
				authHandler("test-token"),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest("GET", "/api/system/status"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"Version": "2.19.4"}),
				),
			)

			portainer := newTestClient(server, client.Options{})
			outcome, err := portainer.Do(ctx, client.Descriptor{Path: "/system/status", AbsPath: true})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(outcome.Kind).To(gomega.Equal(client.KindJSON))
		})
	})

	ginkgo.When("encoding query parameters", func() {
		ginkgo.It("drops nil-valued keys and keeps the rest exactly once", func() {
			server.AppendHandlers(
				authHandler("test-token"),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(
						"GET",
						"/api/endpoints/1/docker/containers/json",
						"all=1&dangling=true",
					),
					ghttp.RespondWithJSONEncoded(http.StatusOK, []map[string]string{}),
				),
			)

			portainer := newTestClient(server, client.Options{})
			_, err := portainer.Do(ctx, client.Descriptor{
				Path: "/containers/json",
				Query: map[string]any{
					"all":      1,
					"since":    nil,
					"dangling": true,
				},
			})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})
	})

	ginkgo.When("classifying responses", func() {
		ginkgo.It("returns an empty outcome for 204", func() {
			server.AppendHandlers(
				authHandler("test-token"),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/api/endpoints/1/docker/containers/c1/start"),
					ghttp.RespondWith(http.StatusNoContent, nil),
				),
			)

			portainer := newTestClient(server, client.Options{})
			outcome, err := portainer.Do(ctx, client.Descriptor{
				Method: http.MethodPost,
				Path:   "/containers/c1/start",
			})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(outcome.Kind).To(gomega.Equal(client.KindEmpty))
			gomega.Expect(outcome.Err()).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("returns a rejection carrying the raw body for 404", func() {
			server.AppendHandlers(
				authHandler("test-token"),
				ghttp.RespondWith(http.StatusNotFound, "no such container"),
			)

			portainer := newTestClient(server, client.Options{})
			outcome, err := portainer.Do(ctx, client.Descriptor{Path: "/containers/gone/json"})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(outcome.Kind).To(gomega.Equal(client.KindRejected))
			gomega.Expect(outcome.Status).To(gomega.Equal(http.StatusNotFound))
			gomega.Expect(outcome.Message).To(gomega.Equal("no such container"))
			gomega.Expect(outcome.NotFound()).To(gomega.BeTrue())
			gomega.Expect(errors.Is(outcome.Err(), client.ErrNotFound)).To(gomega.BeTrue())
		})

		ginkgo.It("keeps JSON error bodies as opaque text", func() {
			server.AppendHandlers(
				authHandler("test-token"),
				ghttp.RespondWithJSONEncoded(
					http.StatusInternalServerError,
					map[string]string{"message": "boom"},
				),
			)

			portainer := newTestClient(server, client.Options{})
			outcome, err := portainer.Do(ctx, client.Descriptor{Path: "/containers/json"})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(outcome.Kind).To(gomega.Equal(client.KindRejected))
			gomega.Expect(outcome.Message).To(gomega.Equal(`{"message":"boom"}`))
			gomega.Expect(errors.Is(outcome.Err(), client.ErrNotFound)).To(gomega.BeFalse())
		})

		ginkgo.It("decodes declared JSON payloads", func() {
			server.AppendHandlers(
				authHandler("test-token"),
				ghttp.RespondWith(
					http.StatusOK,
					`{"Id":"abc"}`,
					http.Header{"Content-Type": []string{"application/json"}},
				),
			)

			portainer := newTestClient(server, client.Options{})
			outcome, err := portainer.Do(ctx, client.Descriptor{Path: "/containers/abc/json"})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(outcome.Kind).To(gomega.Equal(client.KindJSON))

			var payload struct {
				ID string `json:"Id"`
			}
			gomega.Expect(outcome.Decode(&payload)).To(gomega.Succeed())
			gomega.Expect(payload.ID).To(gomega.Equal("abc"))
		})

		ginkgo.It("returns undeclared content as text", func() {
			server.AppendHandlers(
				authHandler("test-token"),
				ghttp.RespondWith(
					http.StatusOK,
					"OK",
					http.Header{"Content-Type": []string{"text/plain"}},
				),
			)

			portainer := newTestClient(server, client.Options{})
			outcome, err := portainer.Do(ctx, client.Descriptor{Path: "/_ping"})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(outcome.Kind).To(gomega.Equal(client.KindText))
			gomega.Expect(outcome.Text).To(gomega.Equal("OK"))
			gomega.Expect(outcome.Decode(&struct{}{})).
				To(gomega.MatchError(client.ErrNoJSONPayload))
		})
	})

	ginkgo.When("managing the token", func() {
		ginkgo.It("exchanges credentials once and reuses the token", func() {
			server.AppendHandlers(
				authHandler("test-token"),
				ghttp.CombineHandlers(
					ghttp.VerifyHeaderKV("Authorization", "Bearer test-token"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, []map[string]string{}),
				),
				ghttp.CombineHandlers(
					ghttp.VerifyHeaderKV("Authorization", "Bearer test-token"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, []map[string]string{}),
				),
			)

			portainer := newTestClient(server, client.Options{})

			_, err := portainer.Do(ctx, client.Descriptor{Path: "/containers/json"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = portainer.Do(ctx, client.Descriptor{Path: "/containers/json"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(server.ReceivedRequests()).To(gomega.HaveLen(3))
		})

		ginkgo.It("skips the exchange for unauthenticated descriptors", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest("GET", "/api/system/status"),
					func(_ http.ResponseWriter, req *http.Request) {
						gomega.Expect(req.Header.Get("Authorization")).To(gomega.BeEmpty())
					},
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{}),
				),
			)

			portainer := newTestClient(server, client.Options{})
			_, err := portainer.Do(ctx, client.Descriptor{
				Path:    "/system/status",
				AbsPath: true,
				NoAuth:  true,
			})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(server.ReceivedRequests()).To(gomega.HaveLen(1))
		})

		ginkgo.It("surfaces rejected credentials as an authentication error", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/api/auth"),
					ghttp.RespondWith(http.StatusUnprocessableEntity, "invalid credentials"),
				),
			)

			portainer := newTestClient(server, client.Options{})
			_, err := portainer.Do(ctx, client.Descriptor{Path: "/containers/json"})

			gomega.Expect(err).To(gomega.MatchError(client.ErrAuthenticationFailed))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("invalid credentials"))
		})

		ginkgo.It("rejects an exchange response without a token value", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/api/auth"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"user": "1"}),
				),
			)

			portainer := newTestClient(server, client.Options{})
			_, err := portainer.Do(ctx, client.Descriptor{Path: "/containers/json"})

			gomega.Expect(err).To(gomega.MatchError(client.ErrMissingToken))
		})
	})

	ginkgo.When("the transport fails", func() {
		ginkgo.It("classifies a deadline as a timeout error", func() {
			server.AppendHandlers(
				func(w http.ResponseWriter, _ *http.Request) {
					time.Sleep(300 * time.Millisecond)
					w.WriteHeader(http.StatusOK)
				},
			)

			portainer := newTestClient(server, client.Options{
				HTTPClient: &http.Client{Timeout: 50 * time.Millisecond},
			})
			_, err := portainer.Do(ctx, client.Descriptor{
				Path:    "/system/status",
				AbsPath: true,
				NoAuth:  true,
			})

			gomega.Expect(err).To(gomega.MatchError(client.ErrRequestTimeout))
		})

		ginkgo.It("classifies a refused connection as a transport error", func() {
			deadServer := ghttp.NewServer()
			portainer := newTestClient(deadServer, client.Options{
				HTTPClient: &http.Client{},
			})
			deadServer.Close()

			_, err := portainer.Do(ctx, client.Descriptor{
				Path:    "/system/status",
				AbsPath: true,
				NoAuth:  true,
			})

			gomega.Expect(err).To(gomega.MatchError(client.ErrTransport))
		})
	})

	ginkgo.When("closing the client", func() {
		ginkgo.It("tolerates repeated calls", func() {
			portainer := client.New(client.Options{Host: "localhost", Port: 9443})
			portainer.Close()
			portainer.Close()
		})
	})
})
