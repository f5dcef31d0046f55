package server

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNoWords = errors.New("word list is empty")

// DefaultWords 内置词库
var DefaultWords = []string{
	"apple", "house", "car", "tree", "ocean", "mountain", "keyboard", "robot", "galaxy", "pizza",
	"bicycle", "book", "camera", "chair", "cloud", "coffee", "dragon", "elephant", "flower", "guitar",
	"hamburger", "ice cream", "jellyfish", "kite", "lamp", "moon", "notebook", "octopus", "penguin", "rainbow",
	"snake", "star", "sun", "table", "telephone", "umbrella", "volcano", "watermelon", "xylophone", "zebra",
	"backpack", "bridge", "castle", "diamond", "fireworks", "globe", "headphones", "island", "jacket", "ketchup",
	"lemon", "magnet", "newspaper", "orange", "pillow", "queen", "rocket", "scissors", "television", "unicorn",
	"violin", "window", "yarn", "zipper", "acorn", "barrel", "candle", "door", "envelope", "feather", "glasses",
	"hat", "igloo", "jungle", "koala", "ladder", "mirror", "needle", "onion", "paint", "quilt", "river",
	"sandwich", "teapot", "vampire", "whale", "x-ray", "yogurt", "zeppelin",
}

// LoadWords 从文件读取词库：每行一个词，忽略空行与 # 注释
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open words file: %w", err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read words file: %w", err)
	}
	if len(words) == 0 {
		return nil, ErrNoWords
	}
	return words, nil
}
