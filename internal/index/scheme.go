package index

var (
	bPosts  = []byte("posts")  // slug -> post json
	bPhotos = []byte("photos") // slug -> post json

	bOrdPosts  = []byte("ord_posts")  // invTime + 0x00 + slug -> 1
	bOrdPhotos = []byte("ord_photos") // invTime + 0x00 + slug -> 1

	bIdxSection = []byte("idx_section") // section -> sub-bucket of ordered post keys
)
