// Package ctcdecode implements greedy CTC decoding and detokenization
// for SentencePiece-unigram and BERT-style wordpiece vocabularies.
package ctcdecode

import (
	"math"
	"strings"
)

// wordStartMarker is the three-byte UTF-8 encoding of U+2581 (LOWER ONE
// EIGHTH BLOCK), SentencePiece's word-start marker.
const wordStartMarker = "▁"

// Result is the outcome of a greedy CTC decode pass: the surviving
// token ids (blank-stripped, duplicate-collapsed) and a confidence
// score.
type Result struct {
	TokenIDs   []int
	Confidence float32
}

// GreedyDecode runs CTC greedy decoding over logProbs, a flat
// [numFrames, vocabSize] row-major log-probability matrix, considering
// only frames [0, encodedLen). It drops any step whose argmax equals
// blankID and collapses adjacent duplicate ids, per the standard CTC
// collapsing rule.
//
// Confidence is the average of exp(max_v logprob[t, v]) over all
// considered frames — every frame, not just surviving ones. It's a
// stable proxy for decode quality, not a calibrated probability.
func GreedyDecode(logProbs []float32, encodedLen, vocabSize, blankID int) Result {
	if encodedLen <= 0 || vocabSize <= 0 {
		return Result{}
	}

	var tokenIDs []int
	prev := -1
	var confSum float64

	for t := 0; t < encodedLen; t++ {
		row := logProbs[t*vocabSize : (t+1)*vocabSize]
		argmax, maxVal := 0, row[0]
		for v := 1; v < vocabSize; v++ {
			if row[v] > maxVal {
				maxVal = row[v]
				argmax = v
			}
		}
		confSum += math.Exp(float64(maxVal))

		if argmax == blankID {
			prev = -1
			continue
		}
		if argmax == prev {
			continue
		}
		tokenIDs = append(tokenIDs, argmax)
		prev = argmax
	}

	return Result{
		TokenIDs:   tokenIDs,
		Confidence: float32(confSum / float64(encodedLen)),
	}
}

// TokenLookup resolves a token id to its string form. *vocab.Vocabulary
// satisfies this via its Token method; it's expressed as an interface
// here so this package doesn't import vocab and create a dependency
// cycle risk as the module grows.
type TokenLookup interface {
	Token(id int) (string, error)
}

// Detokenize joins token strings per SentencePiece/BERT conventions:
// a token beginning with the U+2581 word-start marker starts a new
// word (emit a space before it, unless output is still empty, then
// strip the marker); a token beginning with "##" is a BERT wordpiece
// continuation (append without a space, after stripping "##"); every
// other token is appended as-is with no separator, matching
// SentencePiece's default "glue adjacent pieces" behavior for
// continuation pieces that don't carry the marker.
func Detokenize(tokenIDs []int, vocab TokenLookup) (string, error) {
	var sb strings.Builder
	for _, id := range tokenIDs {
		tok, err := vocab.Token(id)
		if err != nil {
			tok, err = handleUnknownToken(id, err)
			if err != nil {
				return "", err
			}
		}

		switch {
		case strings.HasPrefix(tok, wordStartMarker):
			rest := strings.TrimPrefix(tok, wordStartMarker)
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(rest)
		case strings.HasPrefix(tok, "##"):
			sb.WriteString(strings.TrimPrefix(tok, "##"))
		default:
			sb.WriteString(tok)
		}
	}
	return sb.String(), nil
}
