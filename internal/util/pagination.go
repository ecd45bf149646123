package util

const DefaultPageSize = 20

// Calculate clamps page/size and turns them into an SQL offset/limit pair.
func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = DefaultPageSize
	}
	offset = (page - 1) * size
	return offset, size
}

func TotalPages(total int64, size int) int64 {
	if size <= 0 {
		return 0
	}
	return (total + int64(size) - 1) / int64(size)
}
