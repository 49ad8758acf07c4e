package guard_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/6ixplatform/6ix-sub001/internal/guard"
)

var _ = Describe("SlotLock", func() {
	var lock *guard.SlotLock

	BeforeEach(func() {
		lock = &guard.SlotLock{}
	})

	It("acquires a free slot", func() {
		release, err := lock.TryAcquire()
		Expect(err).NotTo(HaveOccurred())
		Expect(lock.Held()).To(BeTrue())

		release()
		Expect(lock.Held()).To(BeFalse())
	})

	It("rejects a second acquire while held", func() {
		release, err := lock.TryAcquire()
		Expect(err).NotTo(HaveOccurred())
		defer release()

		_, err = lock.TryAcquire()
		Expect(err).To(MatchError(guard.ErrBusy))
	})

	It("treats a double release as a no-op", func() {
		release, err := lock.TryAcquire()
		Expect(err).NotTo(HaveOccurred())

		release()
		release()

		_, err = lock.TryAcquire()
		Expect(err).NotTo(HaveOccurred())
	})

	It("admits exactly one of many concurrent acquirers", func() {
		const attempts = 32

		var wg sync.WaitGroup
		acquired := make(chan func(), attempts)

		for range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if release, err := lock.TryAcquire(); err == nil {
					acquired <- release
				}
			}()
		}
		wg.Wait()
		close(acquired)

		Expect(acquired).To(HaveLen(1))
		for release := range acquired {
			release()
		}
		Expect(lock.Held()).To(BeFalse())
	})
})
