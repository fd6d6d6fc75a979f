package typeddata_test

import (
	"testing"

	"github.com/NethermindEth/starkhash/core/felt"
	"github.com/NethermindEth/starkhash/typeddata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rev0Example = `{
	"types": {
		"StarkNetDomain": [
			{"name": "name", "type": "felt"},
			{"name": "version", "type": "felt"},
			{"name": "chainId", "type": "felt"}
		],
		"Person": [
			{"name": "name", "type": "felt"},
			{"name": "wallet", "type": "felt"}
		],
		"Mail": [
			{"name": "from", "type": "Person"},
			{"name": "to", "type": "Person"},
			{"name": "contents", "type": "felt"}
		]
	},
	"primaryType": "Mail",
	"domain": {"name": "StarkNet Mail", "version": "1", "chainId": 1},
	"message": {
		"from": {"name": "Cow", "wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826"},
		"to": {"name": "Bob", "wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"},
		"contents": "Hello, Bob!"
	}
}`

const rev0FeltArrayExample = `{
	"types": {
		"StarkNetDomain": [
			{"name": "name", "type": "felt"},
			{"name": "version", "type": "felt"},
			{"name": "chainId", "type": "felt"}
		],
		"Person": [
			{"name": "name", "type": "felt"},
			{"name": "wallet", "type": "felt"}
		],
		"Mail": [
			{"name": "from", "type": "Person"},
			{"name": "to", "type": "Person"},
			{"name": "felts_len", "type": "felt"},
			{"name": "felts", "type": "felt*"}
		]
	},
	"primaryType": "Mail",
	"domain": {"name": "StarkNet Mail", "version": "1", "chainId": 1},
	"message": {
		"from": {"name": "Cow", "wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826"},
		"to": {"name": "Bob", "wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"},
		"felts_len": 3,
		"felts": [1, 2, 3]
	}
}`

const rev0StructArrayExample = `{
	"types": {
		"StarkNetDomain": [
			{"name": "name", "type": "felt"},
			{"name": "version", "type": "felt"},
			{"name": "chainId", "type": "felt"}
		],
		"Person": [
			{"name": "name", "type": "felt"},
			{"name": "wallet", "type": "felt"}
		],
		"Post": [
			{"name": "title", "type": "felt"},
			{"name": "content", "type": "felt"}
		],
		"Mail": [
			{"name": "from", "type": "Person"},
			{"name": "to", "type": "Person"},
			{"name": "posts_len", "type": "felt"},
			{"name": "posts", "type": "Post*"}
		]
	},
	"primaryType": "Mail",
	"domain": {"name": "StarkNet Mail", "version": "1", "chainId": 1},
	"message": {
		"from": {"name": "Cow", "wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826"},
		"to": {"name": "Bob", "wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"},
		"posts_len": 2,
		"posts": [
			{"title": "Greeting", "content": "Hello, Bob!"},
			{"title": "Farewell", "content": "Goodbye, Bob!"}
		]
	}
}`

const rev0LongStringExample = `{
	"types": {
		"StarkNetDomain": [
			{"name": "name", "type": "felt"},
			{"name": "version", "type": "felt"},
			{"name": "chainId", "type": "felt"}
		],
		"Person": [
			{"name": "name", "type": "felt"},
			{"name": "wallet", "type": "felt"}
		],
		"String": [
			{"name": "len", "type": "felt"},
			{"name": "data", "type": "felt*"}
		],
		"Mail": [
			{"name": "from", "type": "Person"},
			{"name": "to", "type": "Person"},
			{"name": "contents", "type": "String"}
		]
	},
	"primaryType": "Mail",
	"domain": {"name": "StarkNet Mail", "version": "1", "chainId": 1},
	"message": {
		"from": {"name": "Cow", "wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826"},
		"to": {"name": "Bob", "wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"},
		"contents": {
			"len": 62,
			"data": [
				"0x48656c6c6f2c20426f62212054686973206d657373616765206973206c6f6e",
				"0x676572207468616e20612073696e676c652073686f727420737472696e672e"
			]
		}
	}
}`

const rev1Example = `{
	"types": {
		"StarknetDomain": [
			{"name": "name", "type": "shortstring"},
			{"name": "version", "type": "shortstring"},
			{"name": "chainId", "type": "shortstring"},
			{"name": "revision", "type": "shortstring"}
		],
		"Person": [
			{"name": "name", "type": "felt"},
			{"name": "wallet", "type": "felt"}
		],
		"Mail": [
			{"name": "from", "type": "Person"},
			{"name": "to", "type": "Person"},
			{"name": "contents", "type": "felt"}
		]
	},
	"primaryType": "Mail",
	"domain": {"name": "StarkNet Mail", "version": "1", "chainId": "1", "revision": 1},
	"message": {
		"from": {"name": "Cow", "wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826"},
		"to": {"name": "Bob", "wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"},
		"contents": "Hello, Bob!"
	}
}`

const rev1OrderExample = `{
	"types": {
		"StarknetDomain": [
			{"name": "name", "type": "shortstring"},
			{"name": "version", "type": "shortstring"},
			{"name": "chainId", "type": "shortstring"},
			{"name": "revision", "type": "shortstring"}
		],
		"Account": [
			{"name": "address", "type": "ContractAddress"},
			{"name": "active", "type": "bool"}
		],
		"Order": [
			{"name": "maker", "type": "Account"},
			{"name": "amount", "type": "u128"},
			{"name": "expiry", "type": "timestamp"},
			{"name": "note", "type": "string"},
			{"name": "method", "type": "selector"},
			{"name": "tags", "type": "shortstring*"}
		]
	},
	"primaryType": "Order",
	"domain": {"name": "Orderbook", "version": "1", "chainId": "SN_SEPOLIA", "revision": 1},
	"message": {
		"maker": {"address": "0x4ee1b1c5d18", "active": true},
		"amount": 1000000,
		"expiry": 1735686000,
		"note": "A note that is deliberately much longer than thirty-one bytes of text.",
		"method": "transfer",
		"tags": ["alpha", "beta"]
	}
}`

func fromJSON(t *testing.T, data string) *typeddata.TypedData {
	t.Helper()
	td, err := typeddata.FromJSON([]byte(data))
	require.NoError(t, err)
	return td
}

func signer(t *testing.T) *felt.Felt {
	t.Helper()
	f, err := new(felt.Felt).SetString("0xcd2a3d9f938e13cd947ec05abc7fe734df8dd826")
	require.NoError(t, err)
	return f
}

func TestEncodeType(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		typeName string
		want     string
	}{
		{
			name:     "rev 0",
			data:     rev0Example,
			typeName: "Mail",
			want:     "Mail(from:Person,to:Person,contents:felt)Person(name:felt,wallet:felt)",
		},
		{
			name:     "rev 0 felt array",
			data:     rev0FeltArrayExample,
			typeName: "Mail",
			want:     "Mail(from:Person,to:Person,felts_len:felt,felts:felt*)Person(name:felt,wallet:felt)",
		},
		{
			name:     "rev 0 struct array",
			data:     rev0StructArrayExample,
			typeName: "Mail",
			want:     "Mail(from:Person,to:Person,posts_len:felt,posts:Post*)Person(name:felt,wallet:felt)Post(title:felt,content:felt)",
		},
		{
			name:     "rev 0 long string",
			data:     rev0LongStringExample,
			typeName: "Mail",
			want:     "Mail(from:Person,to:Person,contents:String)Person(name:felt,wallet:felt)String(len:felt,data:felt*)",
		},
		{
			name:     "rev 1",
			data:     rev1Example,
			typeName: "Mail",
			want:     `"Mail"("from":"Person","to":"Person","contents":"felt")"Person"("name":"felt","wallet":"felt")`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			td := fromJSON(t, test.data)
			encoded, err := td.EncodeType(test.typeName)
			require.NoError(t, err)
			assert.Equal(t, test.want, encoded)
		})
	}
}

// Expected hashes were cross-checked against starknet.js and starknet_py.
func TestTypeHash(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		typeName string
		want     string
	}{
		{"rev 0 domain", rev0Example, "StarkNetDomain", "0x1bfc207425a47a5dfa1a50a4f5241203f50624ca5fdf5e18755765416b8e288"},
		{"rev 0 person", rev0Example, "Person", "0x2896dbe4b96a67110f454c01e5336edc5bbc3635537efd690f122f4809cc855"},
		{"rev 0 mail", rev0Example, "Mail", "0x13d89452df9512bf750f539ba3001b945576243288137ddb6c788457d4b2f79"},
		{"rev 0 string", rev0LongStringExample, "String", "0x1933fe9de7e181d64298eecb44fc43b4cec344faa26968646761b7278df4ae2"},
		{"rev 0 mail with string", rev0LongStringExample, "Mail", "0x1ac6f84a5d41cee97febb378ddabbe1390d4e8036df8f89dee194e613411b09"},
		{"rev 0 mail with felt array", rev0FeltArrayExample, "Mail", "0x5b03497592c0d1fe2f3667b63099761714a895c7df96ec90a85d17bfc7a7a0"},
		{"rev 0 post", rev0StructArrayExample, "Post", "0x1d71e69bf476486b43cdcfaf5a85c00bb2d954c042b281040e513080388356d"},
		{"rev 0 mail with struct array", rev0StructArrayExample, "Mail", "0x873b878e35e258fc99e3085d5aaad3a81a0c821f189c08b30def2cde55ff27"},
		{"rev 1 domain", rev1Example, "StarknetDomain", "0x1ff2f602e42168014d405a94f75e8a93d640751d71d16311266e140d8b0a210"},
		{"rev 1 person", rev1Example, "Person", "0x30f7aa21b8d67cb04c30f962dd29b95ab320cb929c07d1605f5ace304dadf34"},
		{"rev 1 mail", rev1Example, "Mail", "0x560430bf7a02939edd1a5c104e7b7a55bbab9f35928b1cf5c7c97de3a907bd"},
		{"rev 1 order", rev1OrderExample, "Order", "0x2621f1a23282c2db1c81a98519dcd8eea6336b3dded793307b5c5ef901b6a7e"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			td := fromJSON(t, test.data)
			hash, err := td.TypeHash(test.typeName)
			require.NoError(t, err)
			assert.Equal(t, test.want, hash.String())

			// memoised second lookup
			again, err := td.TypeHash(test.typeName)
			require.NoError(t, err)
			assert.Equal(t, hash, again)
		})
	}
}

func TestStructHash(t *testing.T) {
	t.Run("rev 0 message", func(t *testing.T) {
		td := fromJSON(t, rev0Example)
		hash, err := td.StructHash("Mail", td.Message)
		require.NoError(t, err)
		assert.Equal(t, "0x4758f1ed5e7503120c228cbcaba626f61514559e9ef5ed653b0b885e0f38aec", hash.String())
	})

	t.Run("rev 0 domain", func(t *testing.T) {
		td := fromJSON(t, rev0Example)
		hash, err := td.DomainHash()
		require.NoError(t, err)
		assert.Equal(t, "0x54833b121883a3e3aebff48ec08a962f5742e5f7b973469c1f8f4f55d470b07", hash.String())
	})

	t.Run("rev 0 felt array message", func(t *testing.T) {
		td := fromJSON(t, rev0FeltArrayExample)
		hash, err := td.StructHash("Mail", td.Message)
		require.NoError(t, err)
		assert.Equal(t, "0x26186b02dddb59bf12114f771971b818f48fad83c373534abebaaa39b63a7ce", hash.String())
	})

	t.Run("rev 0 struct array message", func(t *testing.T) {
		td := fromJSON(t, rev0StructArrayExample)
		hash, err := td.StructHash("Mail", td.Message)
		require.NoError(t, err)
		assert.Equal(t, "0x5650ec45a42c4776a182159b9d33118a46860a6e6639bb8166ff71f3c41eaef", hash.String())
	})

	t.Run("rev 0 long string message", func(t *testing.T) {
		td := fromJSON(t, rev0LongStringExample)
		hash, err := td.StructHash("Mail", td.Message)
		require.NoError(t, err)
		assert.Equal(t, "0x7a69cf0bf4f9cbf5bd7a86f1b85c065f11b35dc007fd4b514e8dac026d421f", hash.String())
	})

	t.Run("rev 1 domain", func(t *testing.T) {
		td := fromJSON(t, rev1Example)
		hash, err := td.DomainHash()
		require.NoError(t, err)
		assert.Equal(t, "0x555f72e550b308e50c1a4f8611483a174026c982a9893a05c185eeb85399657", hash.String())
	})

	t.Run("rev 1 order message", func(t *testing.T) {
		td := fromJSON(t, rev1OrderExample)
		hash, err := td.StructHash("Order", td.Message)
		require.NoError(t, err)
		assert.Equal(t, "0x7ba88ef23739ec8e7971af32e4360673a3b90c8f5e8b11ee723d34585c04a3", hash.String())
	})

	t.Run("rev 1 order domain", func(t *testing.T) {
		td := fromJSON(t, rev1OrderExample)
		hash, err := td.DomainHash()
		require.NoError(t, err)
		assert.Equal(t, "0x264b08d5385a40b842a082297749fbda83be07b096694aa8a907bf32c38734f", hash.String())
	})
}

func TestMessageHash(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"rev 0", rev0Example, "0x6fcff244f63e38b9d88b9e3378d44757710d1b244282b435cb472053c8d78d0"},
		{"rev 0 felt array", rev0FeltArrayExample, "0x30ab43ef724b08c3b0a9bbe425e47c6173470be75d1d4c55fd5bf9309896bce"},
		{"rev 0 struct array", rev0StructArrayExample, "0x5914ed2764eca2e6a41eb037feefd3d2e33d9af6225a9e7fe31ac943ff712c"},
		{"rev 0 long string", rev0LongStringExample, "0x7c6cad8e80cd1391e2aa291108fa657429bc04fdd9a15578d569697f741ab33"},
		{"rev 1", rev1Example, "0x7f6e8c3d8965b5535f5cc68f837c04e3bbe568535b71aa6c621ddfb188932b8"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			td := fromJSON(t, test.data)
			hash, err := td.MessageHash(signer(t))
			require.NoError(t, err)
			assert.Equal(t, test.want, hash.String())
		})
	}

	t.Run("rev 1 order", func(t *testing.T) {
		td := fromJSON(t, rev1OrderExample)
		account, err := new(felt.Felt).SetString("0x1fc039de7d864580b57a575e8e6b7114f4d2a954d7d29f876b2eb3dd09394a0")
		require.NoError(t, err)

		hash, err := td.MessageHash(account)
		require.NoError(t, err)
		assert.Equal(t, "0x621e502e436aa549cad100e064ae9ed40e873577a76a958d2ee259f7294f391", hash.String())
	})
}

func TestGetHex(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{123, "0x7b"},
		{"123", "0x7b"},
		{"0x7b", "0x7b"},
		{"short_string", "0x73686f72745f737472696e67"},
	}
	for _, test := range tests {
		got, err := typeddata.GetHex(test.value)
		require.NoError(t, err)
		assert.Equal(t, test.want, got)
	}

	t.Run("too long short string", func(t *testing.T) {
		_, err := typeddata.GetHex("this string does not fit into thirty-one bytes")
		var encErr *typeddata.EncodingError
		assert.ErrorAs(t, err, &encErr)
	})

	t.Run("fractional float", func(t *testing.T) {
		_, err := typeddata.GetHex(1.5)
		var encErr *typeddata.EncodingError
		assert.ErrorAs(t, err, &encErr)
	})
}

func TestValidation(t *testing.T) {
	domainV1 := typeddata.Domain{
		Name:     "DomainV1",
		Version:  "1",
		ChainID:  "1234",
		Revision: typeddata.RevisionV1,
	}

	t.Run("reserved type names", func(t *testing.T) {
		for _, reserved := range []string{"felt", "felt*", "string", "selector"} {
			types := map[string][]typeddata.Parameter{reserved: {}}
			_, err := typeddata.New(types, reserved, domainV1, map[string]any{reserved: 1})

			var vErr *typeddata.ValidationError
			require.ErrorAs(t, err, &vErr, reserved)
		}
	})

	t.Run("parameter missing its type", func(t *testing.T) {
		_, err := typeddata.FromJSON([]byte(`{
			"types": {
				"StarknetDomain": [
					{"name": "name", "type": "shortstring"},
					{"name": "version", "type": "shortstring"},
					{"name": "chainId", "type": "shortstring"},
					{"name": "revision", "type": "shortstring"}
				],
				"Mail": [{"name": "to"}]
			},
			"primaryType": "Mail",
			"domain": {"name": "A", "version": "1", "chainId": "1", "revision": 1},
			"message": {"to": 1}
		}`))
		require.Error(t, err)
	})

	t.Run("unknown referenced type", func(t *testing.T) {
		types := map[string][]typeddata.Parameter{
			"Mail": {{Name: "to", Type: "Person"}},
		}
		_, err := typeddata.New(types, "Mail", domainV1, map[string]any{})

		var vErr *typeddata.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "Person", vErr.TypeName)
	})

	t.Run("undeclared primary type", func(t *testing.T) {
		_, err := typeddata.New(map[string][]typeddata.Parameter{}, "Mail", domainV1, map[string]any{})

		var vErr *typeddata.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("recursive type", func(t *testing.T) {
		types := map[string][]typeddata.Parameter{
			"Node": {{Name: "next", Type: "Node"}},
		}
		_, err := typeddata.New(types, "Node", domainV1, map[string]any{})

		var vErr *typeddata.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "recursive type", vErr.Reason)
	})

	t.Run("mutually recursive types", func(t *testing.T) {
		types := map[string][]typeddata.Parameter{
			"A": {{Name: "b", Type: "B"}},
			"B": {{Name: "a", Type: "A"}},
		}
		_, err := typeddata.New(types, "A", domainV1, map[string]any{})

		var vErr *typeddata.ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestEncodingErrors(t *testing.T) {
	t.Run("missing message field", func(t *testing.T) {
		td := fromJSON(t, rev0Example)
		_, err := td.StructHash("Person", map[string]any{"name": "Cow"})

		var encErr *typeddata.EncodingError
		assert.ErrorAs(t, err, &encErr)
	})

	t.Run("out of range u128", func(t *testing.T) {
		td := fromJSON(t, rev1OrderExample)
		message := map[string]any{
			"maker":  map[string]any{"address": "0x4ee1b1c5d18", "active": true},
			"amount": "340282366920938463463374607431768211456",
			"expiry": 1735686000,
			"note":   "short",
			"method": "transfer",
			"tags":   []any{},
		}
		_, err := td.StructHash("Order", message)

		var encErr *typeddata.EncodingError
		require.ErrorAs(t, err, &encErr)
		assert.Equal(t, "u128", encErr.FieldType)
	})
}

func TestDeterminism(t *testing.T) {
	first := fromJSON(t, rev1Example)
	second := fromJSON(t, rev1Example)

	account := signer(t)
	hash1, err := first.MessageHash(account)
	require.NoError(t, err)
	hash2, err := second.MessageHash(account)
	require.NoError(t, err)
	assert.Equal(t, hash1.String(), hash2.String())
}
