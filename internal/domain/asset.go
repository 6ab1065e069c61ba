package domain

// RawMediaBlob is the binary content fetched from the platform.
type RawMediaBlob struct {
	Data        []byte
	ContentType string
}

// TransformedAsset is a resized, recompressed image ready for upload.
type TransformedAsset struct {
	Data     []byte
	Filename string
	Width    int
	Height   int
}

// StoreMetadata accompanies an upload to the content store.
type StoreMetadata struct {
	Author string
	Branch string
}

// StoredAssetRef points at an asset persisted in the content store.
type StoredAssetRef struct {
	URL      string
	Path     string
	Revision string
}

// Delivery describes a successfully stored asset and the event it came from.
type Delivery struct {
	Event InboundEvent
	Asset TransformedAsset
	Ref   StoredAssetRef
}
