package vm

// LoadPage brings page's data into a physical frame, performing the
// original_source install_page_in_frame sequence: acquire a frame
// (evicting a victim if the pool is full), fill it from swap, from the
// backing file, or with zeros (stack growth / BSS), then mark the page
// resident.
func LoadPage(ft *FrameTable, swap *SwapTable, page *Page) error {
	if page.Location == PagedIn {
		return nil
	}

	f, victim, err := ft.Acquire(page)
	if err != nil {
		return err
	}

	if victim != nil {
		if err := evict(swap, victim, f); err != nil {
			return err
		}
	}

	switch page.Location {
	case InSwap:
		if err := swap.ReadIn(page.SwapIndex, f.Data()); err != nil {
			return err
		}
		swap.Free(page.SwapIndex)
		page.SwapIndex = -1
	case PagedOut:
		for i := range f.Data() {
			f.Data()[i] = 0
		}
		if page.File != nil && page.ReadBytes > 0 {
			if _, err := page.File.ReadAt(page.Offset, f.Data()[:page.ReadBytes]); err != nil {
				return err
			}
		}
	}

	page.Location = PagedIn
	ft.Unpin(f)
	return nil
}

// evict writes victim's current frame contents to swap before the frame
// is handed to its new occupant, unless the victim is a read-only code
// page: those are reloadable from their backing file and are just marked
// paged out.
func evict(swap *SwapTable, victim *Page, f *Frame) error {
	if victim.Status == StatusCode && !victim.Writable {
		victim.Location = PagedOut
		return nil
	}
	slot, err := swap.WriteOut(f.Data())
	if err != nil {
		return err
	}
	victim.SwapIndex = slot
	victim.Location = InSwap
	victim.frame = nil
	return nil
}

// Evict forcibly reclaims page's frame without waiting for clock
// pressure. The frame's contents are discarded: nothing is written to
// swap or back to the page's file.
func Evict(ft *FrameTable, page *Page) {
	if page.frame == nil {
		return
	}
	ft.Release(page.frame)
	page.Location = PagedOut
}
