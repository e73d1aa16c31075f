/*
Package simpleasset stores FileAssets as binary envelopes in pluggable
blob storage and keeps a queryable metadata record for each one.

Wire a service from a repository and one or more blob stores:

	repo := memoryrepo.New()
	store := memorystorage.New()

	svc, err := simpleasset.New(
		simpleasset.WithRepository(repo),
		simpleasset.WithBlobStore("memory", store),
	)
	if err != nil {
		log.Fatal(err)
	}

	result, err := svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{
		FileName: "photo.jpg",
		Data:     data,
	})

	a, err := svc.LoadAsset(ctx, result.Record.ID)

Loading tolerates envelopes written by older versions. An envelope that
cannot be decoded surfaces as ErrCorruptEnvelope.
*/
package simpleasset
