package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var errExchangeFailed = errors.New("exchange failed")

var _ = ginkgo.Describe("the token manager", func() {
	var exchanges atomic.Int64
	var manager *tokenManager
	var now time.Time

	ginkgo.BeforeEach(func() {
		exchanges.Store(0)
		now = time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
		manager = newTokenManager(func(_ context.Context) (string, error) {
			exchanges.Add(1)

			return "token", nil
		})
		manager.now = func() time.Time { return now }
	})

	ginkgo.It("exchanges credentials on the first call only", func() {
		token, err := manager.Token(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(token).To(gomega.Equal("token"))

		_, err = manager.Token(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(exchanges.Load()).To(gomega.BeEquivalentTo(1))
	})

	ginkgo.It("exchanges again once the token expired", func() {
		_, err := manager.Token(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		now = now.Add(tokenLifetime)

		_, err = manager.Token(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(exchanges.Load()).To(gomega.BeEquivalentTo(2))
	})

	ginkgo.It("keeps a token that has lifetime left", func() {
		_, err := manager.Token(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		now = now.Add(tokenLifetime - time.Minute)

		_, err = manager.Token(context.Background())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(exchanges.Load()).To(gomega.BeEquivalentTo(1))
	})

	ginkgo.It("serializes concurrent refreshes into a single exchange", func() {
		var waitGroup sync.WaitGroup

		for range 16 {
			waitGroup.Add(1)

			go func() {
				defer ginkgo.GinkgoRecover()
				defer waitGroup.Done()

				_, err := manager.Token(context.Background())
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
			}()
		}

		waitGroup.Wait()
		gomega.Expect(exchanges.Load()).To(gomega.BeEquivalentTo(1))
	})

	ginkgo.It("holds no token after a failed exchange", func() {
		failing := newTokenManager(func(_ context.Context) (string, error) {
			exchanges.Add(1)

			return "", errExchangeFailed
		})

		_, err := failing.Token(context.Background())
		gomega.Expect(err).To(gomega.MatchError(errExchangeFailed))

		_, err = failing.Token(context.Background())
		gomega.Expect(err).To(gomega.MatchError(errExchangeFailed))
		gomega.Expect(exchanges.Load()).To(gomega.BeEquivalentTo(2))
	})
})
