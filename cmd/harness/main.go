// Command harness is a hosted driver for the kernel's allocators and
// scheduler: it backs "physical memory" with ordinary Go-heap slices
// (the same trick internal/page's and internal/slab's tests use) and
// exercises the real allocation/scheduling code from a normal OS
// process, for demonstration and manual exploration without a RISC-V
// target. Built on cobra, the CLI library
// _examples/jra3-system-agent's dependency graph already pulls in via
// controller-runtime/klog.
package main

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"vos/internal/earlyalloc"
	"vos/internal/klog"
	"vos/internal/page"
	"vos/internal/paging"
	"vos/internal/sched"
	"vos/internal/slab"
)

func newHostedZone(totalBytes uintptr) (*page.Zone, func()) {
	topBlock := uintptr(page.PageSize) << (page.MaxOrder - 1)
	backing := make([]byte, totalBytes+topBlock)
	base := uintptr(unsafe.Pointer(&backing[0]))
	aligned := (base + topBlock - 1) &^ (topBlock - 1)

	var early earlyalloc.Allocator
	early.Init(aligned, totalBytes)

	zone := &page.Zone{}
	zone.Init(&early, []page.Region{{Start: aligned, Size: totalBytes}})
	keepAlive := func() { runtime.KeepAlive(backing) }
	return zone, keepAlive
}

func allocCmd() *cobra.Command {
	var sizeMB int
	var order int
	cmd := &cobra.Command{
		Use:   "alloc",
		Short: "allocate and free a block from a hosted buddy page allocator",
		RunE: func(cmd *cobra.Command, args []string) error {
			zone, keep := newHostedZone(uintptr(sizeMB) << 20)
			defer keep()

			addr := zone.AllocPages(uint(order))
			if addr == 0 {
				return fmt.Errorf("allocation of order %d failed", order)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "allocated order-%d block at 0x%x\n", order, addr)
			zone.FreePages(addr, uint(order))
			fmt.Fprintln(cmd.OutOrStdout(), "freed")
			return nil
		},
	}
	cmd.Flags().IntVar(&sizeMB, "size-mb", 4, "hosted zone size in MiB")
	cmd.Flags().IntVar(&order, "order", 0, "buddy order to allocate")
	return cmd
}

func slabCmd() *cobra.Command {
	var objectSize int
	var count int
	cmd := &cobra.Command{
		Use:   "slab",
		Short: "allocate N objects from a hosted slab cache and print their addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			zone, keep := newHostedZone(4 << 20)
			defer keep()

			cache := slab.Create(zone, "harness-demo", uint32(objectSize), slab.HWCacheAlign)
			for i := 0; i < count; i++ {
				addr := cache.Alloc(0)
				fmt.Fprintf(cmd.OutOrStdout(), "object %d at 0x%x\n", i, addr)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&objectSize, "object-size", 64, "object size in bytes")
	cmd.Flags().IntVar(&count, "count", 3, "objects to allocate")
	return cmd
}

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "map one Sv39 page and translate an address inside it",
		RunE: func(cmd *cobra.Command, args []string) error {
			zone, keep := newHostedZone(4 << 20)
			defer keep()
			paging.EnablePageAllocator(zone)

			root := paging.CreateRootTable(paging.Sv39)
			const vAddr = uintptr(0x1000 * 0x1000)
			const pAddr = uintptr(0x2000 * 0x1000)
			root.Map(vAddr, pAddr, uint32(paging.BitReadWrite|paging.BitAccess), 0)

			got, ok := root.VirtToPhys(vAddr + 0x42)
			if !ok {
				return fmt.Errorf("translation faulted unexpectedly")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "0x%x -> 0x%x\n", vAddr+0x42, got)
			return nil
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	var objectSize int
	var count int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "allocate from a hosted slab cache and print its CacheStats report",
		RunE: func(cmd *cobra.Command, args []string) error {
			zone, keep := newHostedZone(4 << 20)
			defer keep()

			cache := slab.Create(zone, "harness-status", uint32(objectSize), slab.HWCacheAlign)
			for i := 0; i < count; i++ {
				if cache.Alloc(0) == 0 {
					return fmt.Errorf("allocation %d failed", i)
				}
			}

			s := cache.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "object-size=%d size=%d align=%d objs-per-slab=%d page-order=%d\n",
				s.ObjectSize, s.Size, s.Align, s.ObjsPerSlab, s.PageOrder)
			fmt.Fprintf(cmd.OutOrStdout(), "objects-allocated=%d slabs-active=%d node-partial=%d\n",
				s.ObjectsAllocated, s.SlabsActive, s.NodePartial)
			return nil
		},
	}
	cmd.Flags().IntVar(&objectSize, "object-size", 64, "object size in bytes")
	cmd.Flags().IntVar(&count, "count", 8, "objects to allocate before reporting stats")
	return cmd
}

func schedCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "sched",
		Short: "dispatch N demo tasks through the ready list and print the FIFO order",
		RunE: func(cmd *cobra.Command, args []string) error {
			idle := sched.NewTask(0, sched.TypeKernel, 0)
			sched.RegisterIdleTask(0, idle)

			for i := 1; i <= n; i++ {
				sched.AddTask(sched.NewTask(uint64(i), sched.TypeUser, 0))
			}
			for i := 0; i < n+1; i++ {
				t := sched.Schedule(0)
				if t.IsIdle {
					fmt.Fprintln(cmd.OutOrStdout(), "idle")
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "tid %d\n", t.Tid)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 3, "number of tasks to enqueue")
	return cmd
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "harness",
		Short: "hosted driver for the kernel's allocators and scheduler",
	}
	root.AddCommand(allocCmd(), slabCmd(), mapCmd(), schedCmd(), statusCmd())
	return root
}

func main() {
	klog.SetDefault(klog.New(os.Stderr, zapcore.InfoLevel))
	klog.Default().Info("harness starting")

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
